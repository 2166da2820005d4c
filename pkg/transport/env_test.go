package transport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		if i := strings.IndexByte(kv, '='); i > 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

func TestBuildChildEnvPosixAllowlist(t *testing.T) {
	parent := []string{
		"HOME=/home/alice",
		"PATH=/usr/bin:/bin",
		"USER=alice",
		"SHELL=/bin/bash",
		"AWS_SECRET_ACCESS_KEY=hunter2",
		"DATABASE_URL=postgres://prod",
	}

	env := envMap(buildChildEnv("linux", parent, nil))

	assert.Equal(t, "/home/alice", env["HOME"])
	assert.Equal(t, "/usr/bin:/bin", env["PATH"])
	assert.Equal(t, "alice", env["USER"])
	assert.Equal(t, "/bin/bash", env["SHELL"])

	_, ok := env["AWS_SECRET_ACCESS_KEY"]
	assert.False(t, ok, "non-allowlisted parent variables must be withheld")
	_, ok = env["DATABASE_URL"]
	assert.False(t, ok)
}

func TestBuildChildEnvSkipsExportedFunctions(t *testing.T) {
	parent := []string{
		"PATH=/usr/bin",
		"TERM=() { :; }; echo pwned",
	}

	env := envMap(buildChildEnv("linux", parent, nil))

	assert.Equal(t, "/usr/bin", env["PATH"])
	_, ok := env["TERM"]
	assert.False(t, ok, "function-shaped values must not be inherited")
}

func TestBuildChildEnvUserOverrides(t *testing.T) {
	parent := []string{"PATH=/usr/bin", "HOME=/home/alice"}
	user := map[string]string{
		"PATH":    "/custom/bin",
		"API_KEY": "k-123",
	}

	env := envMap(buildChildEnv("linux", parent, user))

	assert.Equal(t, "/custom/bin", env["PATH"], "user values beat inherited values")
	assert.Equal(t, "k-123", env["API_KEY"])
	assert.Equal(t, "/home/alice", env["HOME"])
}

func TestBuildChildEnvWindowsExtras(t *testing.T) {
	parent := []string{
		"PATH=C:\\Windows\\system32",
		"SYSTEMROOT=C:\\Windows",
		"PATHEXT=.COM;.EXE;.BAT;.CMD",
		"ComSpec=C:\\Windows\\system32\\cmd.exe",
	}

	t.Run("augmented from parent", func(t *testing.T) {
		env := envMap(buildChildEnv("windows", parent, nil))

		assert.Equal(t, ".COM;.EXE;.BAT;.CMD", env["PATHEXT"])
		assert.Equal(t, "C:\\Windows\\system32\\cmd.exe", env["ComSpec"])
		assert.Equal(t, "C:\\Windows", env["SYSTEMROOT"])
	})

	t.Run("user value wins", func(t *testing.T) {
		env := envMap(buildChildEnv("windows", parent, map[string]string{
			"PATHEXT": ".EXE",
		}))

		assert.Equal(t, ".EXE", env["PATHEXT"])
		assert.Equal(t, "C:\\Windows\\system32\\cmd.exe", env["ComSpec"])
	})

	t.Run("absent from parent stays absent", func(t *testing.T) {
		env := envMap(buildChildEnv("windows", []string{"PATH=C:\\Windows"}, nil))

		_, ok := env["PATHEXT"]
		assert.False(t, ok)
		_, ok = env["ComSpec"]
		assert.False(t, ok)
	})
}

func TestBuildChildEnvWindowsAllowlist(t *testing.T) {
	parent := []string{
		"USERPROFILE=C:\\Users\\alice",
		"APPDATA=C:\\Users\\alice\\AppData\\Roaming",
		"HOME=/should/not/exist/on/windows/list",
	}

	env := envMap(buildChildEnv("windows", parent, nil))

	assert.Equal(t, "C:\\Users\\alice", env["USERPROFILE"])
	assert.Equal(t, "C:\\Users\\alice\\AppData\\Roaming", env["APPDATA"])
	_, ok := env["HOME"]
	assert.False(t, ok, "HOME is not on the Windows inheritance list")
}

func TestBuildChildEnvDeterministic(t *testing.T) {
	parent := []string{"USER=alice", "PATH=/bin", "HOME=/home/alice"}
	user := map[string]string{"B_VAR": "2", "A_VAR": "1"}

	first := buildChildEnv("linux", parent, user)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, buildChildEnv("linux", parent, user))
	}

	require.NotEmpty(t, first)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1], first[i], "entries must be sorted")
	}
}
