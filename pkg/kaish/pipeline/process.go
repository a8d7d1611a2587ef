package pipeline

import (
	"bytes"
	"errors"
	"os/exec"
)

// runProcess runs cmd to completion with stdin piped in and stdout/stderr
// captured separately, translating a non-zero exit into (stdout, stderr,
// code, nil) rather than an error — only a failure to start or a
// non-exit error (e.g. context cancellation) is returned as err.
func runProcess(cmd *exec.Cmd, stdin []byte) (stdout, stderr string, code int, err error) {
	cmd.Stdin = bytes.NewReader(stdin)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr == nil {
		return outBuf.String(), errBuf.String(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return outBuf.String(), errBuf.String(), exitErr.ExitCode(), nil
	}
	return "", "", 0, runErr
}
