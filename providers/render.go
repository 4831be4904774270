package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"videoInsight/core"
	"videoInsight/processors"
)

// Renderer cuts a short video out of the source per the assembled plan and
// returns the output path.
type Renderer interface {
	Render(ctx context.Context, sourcePath string, plan core.ShortVideoPlan) (string, error)
}

// FFmpegRenderer trims each plan range, optionally crops to a vertical
// frame, and concatenates with a single filter graph pass.
type FFmpegRenderer struct {
	OutDir string
}

func (r FFmpegRenderer) Render(ctx context.Context, sourcePath string, plan core.ShortVideoPlan) (string, error) {
	if len(plan.Ranges) == 0 {
		return "", core.NewError(core.CodeInvalidArgument, "plan has no ranges")
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return "", core.WrapError(err, core.CodeNotFound, fmt.Sprintf("source video not found: %s", sourcePath))
	}
	outDir := r.OutDir
	if outDir == "" {
		outDir = filepath.Join(core.DataRoot(), plan.VideoID)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", core.WrapError(err, core.CodeInternal, "create output directory")
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("short_%s.mp4", core.NewID()[:8]))

	var filter strings.Builder
	vertical := plan.Style == "vertical"
	for i, rg := range plan.Ranges {
		crop := ""
		if vertical {
			crop = ",crop=ih*9/16:ih"
		}
		fmt.Fprintf(&filter, "[0:v]trim=start=%.3f:end=%.3f,setpts=PTS-STARTPTS%s[v%d];", rg.Start, rg.End, crop, i)
		fmt.Fprintf(&filter, "[0:a]atrim=start=%.3f:end=%.3f,asetpts=PTS-STARTPTS[a%d];", rg.Start, rg.End, i)
	}
	for i := range plan.Ranges {
		fmt.Fprintf(&filter, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[outv][outa]", len(plan.Ranges))

	args := []string{
		"-y", "-i", sourcePath,
		"-filter_complex", filter.String(),
		"-map", "[outv]", "-map", "[outa]",
		"-c:v", "libx264", "-preset", "fast", "-c:a", "aac",
		outPath,
	}
	if err := processors.RunFFmpeg(ctx, args); err != nil {
		return "", core.WrapError(err, core.CodeRenderFailed, "render short video")
	}
	return outPath, nil
}

// MockRenderer writes the plan as a placeholder file so the flow is
// exercisable without ffmpeg producing real output.
type MockRenderer struct {
	OutDir string
}

func (r MockRenderer) Render(_ context.Context, _ string, plan core.ShortVideoPlan) (string, error) {
	if len(plan.Ranges) == 0 {
		return "", core.NewError(core.CodeInvalidArgument, "plan has no ranges")
	}
	outDir := r.OutDir
	if outDir == "" {
		outDir = filepath.Join(core.DataRoot(), plan.VideoID)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", core.WrapError(err, core.CodeInternal, "create output directory")
	}
	outPath := filepath.Join(outDir, "short_mock.txt")
	var b strings.Builder
	for _, rg := range plan.Ranges {
		fmt.Fprintf(&b, "%s\n", core.FormatRange(rg.Start, rg.End))
	}
	if err := os.WriteFile(outPath, []byte(b.String()), 0644); err != nil {
		return "", core.WrapError(err, core.CodeRenderFailed, "write mock render")
	}
	return outPath, nil
}
