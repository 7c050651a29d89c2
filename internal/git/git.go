package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// FileStatus is the git state of one vault file.
type FileStatus struct {
	Path    string
	Tracked bool
	Ignored bool
}

// GitStatus contains git integration status information
type GitStatus struct {
	IsRepo bool
	Files  []FileStatus
}

// Exposed reports whether any vault file is tracked or not ignored.
func (s *GitStatus) Exposed() bool {
	for _, f := range s.Files {
		if f.Tracked || !f.Ignored {
			return true
		}
	}
	return false
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckVaultFiles reports the git state of each vault file relative to
// workDir. Outside a repository only IsRepo=false is returned.
func CheckVaultFiles(workDir string, paths []string) *GitStatus {
	status := &GitStatus{IsRepo: IsGitRepo(workDir)}
	if !status.IsRepo {
		return status
	}

	for _, p := range paths {
		status.Files = append(status.Files, FileStatus{
			Path:    p,
			Tracked: IsTracked(workDir, p),
			Ignored: IsIgnored(workDir, p),
		})
	}
	return status
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	for _, f := range status.Files {
		switch {
		case f.Tracked:
			result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", f.Path, f.Path))
		case !f.Ignored:
			result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", f.Path))
		default:
			result.WriteString(fmt.Sprintf("   ok: %s is ignored by git\n", f.Path))
		}
	}

	return result.String()
}
