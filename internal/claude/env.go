package claude

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// cleanTmpDirName is created under the system temp dir. Editor socket files
// in the default TMPDIR make the CLI fail when --settings is passed.
const cleanTmpDirName = "claudiomiro-claude"

// CleanTmpDir returns the temp directory used for CLI invocations, creating it.
func CleanTmpDir() string {
	dir := filepath.Join(os.TempDir(), cleanTmpDirName)
	_ = os.MkdirAll(dir, 0755)
	return dir
}

// SetCleanEnv gives cmd the current environment with TMPDIR replaced.
func SetCleanEnv(cmd *exec.Cmd) {
	tmp := "TMPDIR=" + CleanTmpDir()
	cmd.Env = os.Environ()
	for i, env := range cmd.Env {
		if strings.HasPrefix(env, "TMPDIR=") {
			cmd.Env[i] = tmp
			return
		}
	}
	cmd.Env = append(cmd.Env, tmp)
}
