package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/echocipher/carrier/internal/bundle"
	"github.com/echocipher/carrier/internal/errors"
	gatewayDomain "github.com/echocipher/carrier/internal/gateway/domain"
)

const processWaitDelay = 5 * time.Second

// ProcessGateway runs the transform script as a child process and exchanges
// files with it through a per-call scratch directory.
type ProcessGateway struct {
	cfg    Config
	fs     afero.Fs
	logger *slog.Logger
}

// NewProcessGateway validates cfg and creates a subprocess gateway.
func NewProcessGateway(cfg Config, logger *slog.Logger) (*ProcessGateway, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("process gateway requires a command")
	}
	return &ProcessGateway{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		logger: logger,
	}, nil
}

// Encode writes the audio to disk, runs "encode" and zips the produced images.
func (g *ProcessGateway) Encode(
	ctx context.Context,
	req gatewayDomain.EncodeRequest,
) (*gatewayDomain.EncodeResult, error) {
	workDir, cleanup, err := g.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	inputPath := filepath.Join(workDir, filepath.Base(req.FileName))
	outDir := filepath.Join(workDir, "out")
	if err := afero.WriteFile(g.fs, inputPath, req.Audio, 0o600); err != nil {
		return nil, gatewayDomain.NewFailure("write input: %v", err)
	}
	if err := g.fs.MkdirAll(outDir, 0o700); err != nil {
		return nil, gatewayDomain.NewFailure("create output dir: %v", err)
	}

	args := []string{
		"encode",
		"--input", inputPath,
		"--outdir", outDir,
		"--user", req.UserID,
		"--master", req.MasterKeyHex,
		"--max-chunk-bytes", strconv.FormatInt(maxChunkBytes(req.Options.MaxChunkBytes, g.cfg.DefaultMaxChunkBytes), 10),
	}
	if !req.Options.Compress {
		args = append(args, "--no-compress")
	}
	if err := g.run(ctx, req.MasterKeyHex, args); err != nil {
		return nil, err
	}

	entries, err := g.readDir(outDir)
	if err != nil {
		return nil, err
	}
	images := bundle.Chunks(entries)
	if len(images) == 0 {
		return nil, gatewayDomain.NewFailure("encode produced no images")
	}
	data, err := bundle.Pack(entries)
	if err != nil {
		return nil, gatewayDomain.NewFailure("pack bundle: %v", err)
	}

	stem := strings.TrimSuffix(filepath.Base(req.FileName), filepath.Ext(req.FileName))
	return &gatewayDomain.EncodeResult{
		Bundle:       data,
		FileName:     stem + "_images.zip",
		TotalImages:  len(images),
		OriginalSize: int64(len(req.Audio)),
		Compressed:   req.Options.Compress,
	}, nil
}

// Decode unzips the bundle into the input directory, runs "decode" and reads
// back the recovered audio.
func (g *ProcessGateway) Decode(
	ctx context.Context,
	req gatewayDomain.DecodeRequest,
) (*gatewayDomain.DecodeResult, error) {
	workDir, cleanup, err := g.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	entries, err := bundle.UnpackLimited(req.Bundle, g.cfg.maxResponseBytes())
	if err != nil {
		return nil, gatewayDomain.NewFailure("unpack bundle: %v", err)
	}
	inDir := filepath.Join(workDir, "in")
	if err := g.fs.MkdirAll(inDir, 0o700); err != nil {
		return nil, gatewayDomain.NewFailure("create input dir: %v", err)
	}
	for _, e := range entries {
		if err := afero.WriteFile(g.fs, filepath.Join(inDir, e.Name), e.Data, 0o600); err != nil {
			return nil, gatewayDomain.NewFailure("write %s: %v", e.Name, err)
		}
	}

	outName := filepath.Base(req.OutputFileName)
	if req.OutputFileName == "" || outName == "." || outName == "/" {
		outName = "recovered_audio.wav"
	}
	outPath := filepath.Join(workDir, outName)

	args := []string{
		"decode",
		"--indir", inDir,
		"--out", outPath,
		"--user", req.UserID,
		"--master", req.MasterKeyHex,
	}
	if err := g.run(ctx, req.MasterKeyHex, args); err != nil {
		return nil, err
	}

	audio, err := g.readOutput(outPath)
	if err != nil {
		return nil, gatewayDomain.NewFailure("read decoded audio: %v", err)
	}
	if len(audio) == 0 {
		return nil, gatewayDomain.NewFailure("decode produced an empty file")
	}
	return &gatewayDomain.DecodeResult{
		Audio:       audio,
		FileName:    outName,
		ContentType: "application/octet-stream",
		TotalChunks: len(bundle.Chunks(entries)),
	}, nil
}

// Health checks that the configured command and script are present.
func (g *ProcessGateway) Health(ctx context.Context) error {
	if _, err := exec.LookPath(g.cfg.Command); err != nil {
		return gatewayDomain.NewFailure("command %s not found: %v", g.cfg.Command, err)
	}
	if g.cfg.Script != "" {
		if _, err := g.fs.Stat(g.cfg.Script); err != nil {
			return gatewayDomain.NewFailure("script %s not found: %v", g.cfg.Script, err)
		}
	}
	return nil
}

func (g *ProcessGateway) scratch() (string, func(), error) {
	dir, err := afero.TempDir(g.fs, g.cfg.WorkDir, "carrier-gateway-")
	if err != nil {
		return "", nil, gatewayDomain.NewFailure("create scratch dir: %v", err)
	}
	return dir, func() {
		if err := g.fs.RemoveAll(dir); err != nil {
			g.logger.Warn("failed to remove gateway scratch dir",
				slog.String("dir", dir),
				slog.Any("error", err),
			)
		}
	}, nil
}

// run executes the script under the gateway timeout. The master key is also
// passed through MASTER_KEY_HEX and is redacted from any reported output.
func (g *ProcessGateway) run(ctx context.Context, masterKeyHex string, args []string) error {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	op := args[0]
	if g.cfg.Script != "" {
		args = append([]string{g.cfg.Script}, args...)
	}
	cmd := exec.CommandContext(ctx, g.cfg.Command, args...) //nolint:gosec
	cmd.Env = append(os.Environ(), "MASTER_KEY_HEX="+masterKeyHex)
	cmd.WaitDelay = processWaitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gatewayDomain.NewTimeout(ctx.Err())
	}
	return gatewayDomain.NewFailure("%s: %s", op, lastLine(redact(output.String(), masterKeyHex), err))
}

func (g *ProcessGateway) readDir(dir string) ([]bundle.Entry, error) {
	infos, err := afero.ReadDir(g.fs, dir)
	if err != nil {
		return nil, gatewayDomain.NewFailure("read output dir: %v", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	entries := make([]bundle.Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if info.Size() > g.cfg.maxResponseBytes() {
			return nil, gatewayDomain.NewFailure("%s exceeds %d bytes", info.Name(), g.cfg.maxResponseBytes())
		}
		data, err := afero.ReadFile(g.fs, filepath.Join(dir, info.Name()))
		if err != nil {
			return nil, gatewayDomain.NewFailure("read %s: %v", info.Name(), err)
		}
		entries = append(entries, bundle.Entry{Name: info.Name(), Data: data})
	}
	return entries, nil
}

func (g *ProcessGateway) readOutput(path string) ([]byte, error) {
	f, err := g.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return readLimited(f, g.cfg.maxResponseBytes())
}

func redact(output, secret string) string {
	if secret == "" {
		return output
	}
	return strings.ReplaceAll(output, secret, "[redacted]")
}

// lastLine returns the last non-empty output line, which is where the script
// reports its error, or the exit error when the output is empty.
func lastLine(output string, exitErr error) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return exitErr.Error()
}
