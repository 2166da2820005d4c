package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
)

func TestStdioSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    StdioSpec
		wantErr bool
	}{
		{
			name: "valid command",
			spec: StdioSpec{Command: "mcp-everything"},
		},
		{
			name: "command with args and env",
			spec: StdioSpec{
				Command: "npx",
				Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
				Env:     map[string]string{"NODE_ENV": "production"},
			},
		},
		{
			name:    "missing command",
			spec:    StdioSpec{Args: []string{"--stdio"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryConfiguration))
		})
	}
}

func TestHTTPSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    HTTPSpec
		wantErr bool
	}{
		{
			name: "valid http url",
			spec: HTTPSpec{URL: "http://localhost:8080/mcp"},
		},
		{
			name: "valid https url with headers",
			spec: HTTPSpec{
				URL:     "https://api.example.com/mcp",
				Headers: map[string]string{"Authorization": "Bearer token"},
			},
		},
		{
			name:    "empty url",
			spec:    HTTPSpec{},
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			spec:    HTTPSpec{URL: "ftp://example.com/mcp"},
			wantErr: true,
		},
		{
			name:    "missing host",
			spec:    HTTPSpec{URL: "http://"},
			wantErr: true,
		},
		{
			name:    "unparseable url",
			spec:    HTTPSpec{URL: "http://bad url/mcp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryConfiguration))
		})
	}
}

func TestSpecKinds(t *testing.T) {
	assert.Equal(t, KindStdio, StdioSpec{Command: "x"}.Kind())
	assert.Equal(t, KindStreamableHTTP, HTTPSpec{URL: "http://h/mcp"}.Kind())
}

func TestSpecDescribe(t *testing.T) {
	stdio := StdioSpec{
		Command: "npx",
		Args:    []string{"-y", "some-server"},
		Env:     map[string]string{"API_KEY": "secret-value"},
	}
	desc := stdio.Describe()
	assert.Contains(t, desc, "npx")
	assert.NotContains(t, desc, "secret-value")

	httpSpec := HTTPSpec{
		URL:     "https://api.example.com/mcp",
		Headers: map[string]string{"Authorization": "Bearer secret-token"},
	}
	desc = httpSpec.Describe()
	assert.Contains(t, desc, "https://api.example.com/mcp")
	assert.NotContains(t, desc, "secret-token")
}
