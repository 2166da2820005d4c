package transport

import (
	"sort"
	"strings"
)

// defaultInheritedEnv lists the parent variables a spawned server inherits when
// the caller does not pass a full environment. Everything else in the parent
// environment is withheld so credentials do not leak into child servers.
func defaultInheritedEnv(goos string) []string {
	if goos == "windows" {
		return []string{
			"APPDATA",
			"HOMEDRIVE",
			"HOMEPATH",
			"LOCALAPPDATA",
			"PATH",
			"PROCESSOR_ARCHITECTURE",
			"SYSTEMDRIVE",
			"SYSTEMROOT",
			"TEMP",
			"USERNAME",
			"USERPROFILE",
		}
	}
	return []string{"HOME", "LOGNAME", "PATH", "SHELL", "TERM", "USER"}
}

// windowsExtraEnv are the variables command resolution needs on Windows that
// the default inheritance list omits. Without PATHEXT the child cannot resolve
// .cmd/.bat wrappers (package-runner shims in particular), and without ComSpec
// it cannot locate the command interpreter.
var windowsExtraEnv = []string{"PATHEXT", "ComSpec"}

// buildChildEnv computes the environment for a spawned server process. The
// default inherited allowlist for goos is taken from parent (skipping values
// that look like exported shell functions), Windows additionally inherits
// PATHEXT and ComSpec when the parent has them, and user entries override
// everything. The result is sorted for deterministic command construction.
func buildChildEnv(goos string, parent []string, user map[string]string) []string {
	parentVals := make(map[string]string, len(parent))
	for _, kv := range parent {
		if i := strings.IndexByte(kv, '='); i > 0 {
			parentVals[kv[:i]] = kv[i+1:]
		}
	}

	merged := make(map[string]string)
	for _, key := range defaultInheritedEnv(goos) {
		val, ok := parentVals[key]
		if !ok {
			continue
		}
		if strings.HasPrefix(val, "()") {
			// Exported shell functions are not environment values.
			continue
		}
		merged[key] = val
	}

	if goos == "windows" {
		for _, key := range windowsExtraEnv {
			if _, supplied := user[key]; supplied {
				continue
			}
			if val, ok := parentVals[key]; ok {
				merged[key] = val
			}
		}
	}

	for k, v := range user {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}
