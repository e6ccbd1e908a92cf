package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-canvas/backend/internal/client"
	"github.com/zhouzirui/z-canvas/backend/internal/export"
	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
	"github.com/zhouzirui/z-canvas/backend/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] 无法加载 .env，改用系统环境变量: %v\n", err)
	}

	server := flag.String("server", envOr("CANVAS_SERVER", "http://localhost:3000"), "画布服务地址")
	width := flag.Int("width", 800, "画布宽度 (像素)")
	height := flag.Int("height", 600, "画布高度 (像素)")
	outDir := flag.String("out", ".", "导出文件目录")
	attach := flag.String("attach", "", "附加到已有画布 ID，只导出不绘制")
	timeout := flag.Duration("timeout", 30*time.Second, "请求超时时间")
	level := flag.String("log-level", "info", "日志级别")
	flag.Parse()

	if err := logger.Init(*level, "console"); err != nil {
		fmt.Fprintf(os.Stderr, "日志初始化失败: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*server)

	var (
		mirror *client.Mirror
		err    error
	)
	if *attach != "" {
		mirror, err = client.AttachMirror(ctx, c, *attach)
	} else {
		mirror, err = client.NewMirror(ctx, c, *width, *height)
		if err == nil {
			err = drawScene(ctx, mirror, *width, *height)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Str("server", *server).Msg("画布操作失败")
	}

	log.Info().Str("canvas", mirror.ID()).Int("elements", len(mirror.Elements())).Msg("画布就绪")

	if err := writeExports(ctx, c, mirror, *outDir); err != nil {
		log.Fatal().Err(err).Msg("导出失败")
	}
}

// drawScene 绘制演示场景：红色矩形、蓝色圆环、居中标题
func drawScene(ctx context.Context, m *client.Mirror, width, height int) error {
	w, h := float64(width), float64(height)

	steps := []func() error{
		func() error {
			return m.AddRectangle(ctx, canvas.RectangleOptions{
				X: w * 0.1, Y: h * 0.1, Width: w * 0.35, Height: h * 0.3,
				Color: ptr("#e53935"),
			})
		},
		func() error {
			return m.AddCircle(ctx, canvas.CircleOptions{
				X: w * 0.7, Y: h * 0.35, Radius: h * 0.18,
				Color: ptr("rgb(30, 136, 229)"), IsFilled: ptr(false),
			})
		},
		func() error {
			return m.AddText(ctx, canvas.TextOptions{
				Text: "Z Canvas", X: w / 2, Y: h * 0.8,
				FontSize: ptr(h / 12), FontFamily: ptr("Helvetica bold"),
				Align: ptr("center"),
			})
		},
	}
	for i, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// writeExports 保存服务端 PDF 与本地镜像 PNG
func writeExports(ctx context.Context, c *client.Client, m *client.Mirror, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var pdf bytes.Buffer
	if err := c.ExportPDF(ctx, m.ID(), &pdf); err != nil {
		return err
	}
	pdfPath := filepath.Join(dir, "canvas.pdf")
	if err := os.WriteFile(pdfPath, pdf.Bytes(), 0o644); err != nil {
		return err
	}

	var preview bytes.Buffer
	if err := export.PNG(&preview, m.Snapshot()); err != nil {
		return err
	}
	pngPath := filepath.Join(dir, "mirror.png")
	if err := os.WriteFile(pngPath, preview.Bytes(), 0o644); err != nil {
		return err
	}

	log.Info().Str("pdf", pdfPath).Int("pdfBytes", pdf.Len()).Str("png", pngPath).Msg("导出完成")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func ptr[T any](v T) *T { return &v }
