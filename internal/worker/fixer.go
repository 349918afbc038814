package worker

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Runner invokes the external repair operation on a local file. The binary's
// contract: `<path> <inputFile> <outputFile>`, success means empty stderr and
// a stdout line reporting the recovered annotation count.
type Runner interface {
	Fix(ctx context.Context, inputPath, outputPath string) (stdout, stderr string, err error)
}

type execRunner struct {
	binaryPath string
	timeout    time.Duration
}

// NewExecRunner returns a Runner that shells out to the fixer binary with a
// hard deadline per invocation.
func NewExecRunner(binaryPath string, timeout time.Duration) Runner {
	return &execRunner{binaryPath: binaryPath, timeout: timeout}
}

func (r *execRunner) Fix(ctx context.Context, inputPath, outputPath string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binaryPath, inputPath, outputPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
