package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
)

const ogrBinary = "ogr2ogr"

// ErrOGRNotFound is returned when the external ogr2ogr binary is missing.
var ErrOGRNotFound = errors.New("convert: ogr2ogr not found on PATH")

// OGRRequest describes one ogr2ogr invocation.
type OGRRequest struct {
	Src       string
	Dst       string
	DstFormat string // ogr2ogr -f argument, e.g. "GeoJSON" or "ESRI Shapefile"
	AssignCRS string // ogr2ogr -a_srs argument, e.g. "EPSG:4283"; empty to skip
}

// Args returns the argument list for the request, without the binary name.
func (r *OGRRequest) Args() []string {
	args := []string{"-f", r.DstFormat}
	if r.AssignCRS != "" {
		args = append(args, "-a_srs", r.AssignCRS)
	}
	return append(args, r.Dst, r.Src)
}

// RunOGR shells out to ogr2ogr. The subprocess runs in its own process
// group so that context cancellation kills the whole tree, and stderr is
// captured into the returned error since ogr2ogr reports everything there.
func RunOGR(ctx context.Context, req *OGRRequest) error {
	path, err := exec.LookPath(ogrBinary)
	if err != nil {
		return ErrOGRNotFound
	}

	cmd := exec.CommandContext(ctx, path, req.Args()...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("convert: starting ogr2ogr: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return fmt.Errorf("convert: ogr2ogr cancelled: %w", ctx.Err())
	case err = <-done:
	}

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("convert: ogr2ogr: %s: %w", msg, err)
		}
		return fmt.Errorf("convert: ogr2ogr: %w", err)
	}

	return nil
}
