package canvas_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
	"github.com/zhouzirui/z-canvas/backend/internal/service/canvas"
)

func decodePNG(t *testing.T, svc *canvas.Service, id string) image.Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, svc.ExportPNG(context.Background(), id, &buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	return img
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestServiceCreateSessionIssuesFreshIDs(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 1; i <= 50; i++ {
		info, err := svc.CreateSession(ctx, i, i*2)
		require.NoError(t, err)
		require.False(t, seen[info.ID], "duplicate id %s", info.ID)
		seen[info.ID] = true

		elements, err := svc.Elements(ctx, info.ID)
		require.NoError(t, err)
		assert.Empty(t, elements)

		got, err := svc.GetSession(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.Width)
		assert.Equal(t, i*2, got.Height)
		assert.Zero(t, got.ElementCount)
	}
	assert.Equal(t, 50, svc.Len())
}

func TestServiceCreateSessionInvalidDimensions(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	for _, dims := range [][2]int{{0, 0}, {0, 10}, {10, 0}, {10, -1}, {-5, -5}} {
		_, err := svc.CreateSession(context.Background(), dims[0], dims[1])
		assert.ErrorIs(t, err, canvas.ErrInvalidDimensions, "%v", dims)
	}
	assert.Zero(t, svc.Len())
}

func TestServiceMaxDimension(t *testing.T) {
	opts := canvas.DefaultOptions()
	opts.MaxDimension = 100
	svc := canvas.NewService(opts)

	_, err := svc.CreateSession(context.Background(), 101, 10)
	assert.ErrorIs(t, err, canvas.ErrInvalidDimensions)

	_, err = svc.CreateSession(context.Background(), 100, 100)
	assert.NoError(t, err)
}

func TestServiceUnknownSession(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	ctx := context.Background()
	const missing = "never-issued"

	_, err := svc.GetSession(ctx, missing)
	assert.ErrorIs(t, err, canvas.ErrSessionNotFound)
	_, err = svc.Elements(ctx, missing)
	assert.ErrorIs(t, err, canvas.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Apply(ctx, missing, model.Rectangle{Width: 1, Height: 1}), canvas.ErrSessionNotFound)
	assert.ErrorIs(t, svc.ExportPDF(ctx, missing, &bytes.Buffer{}), canvas.ErrSessionNotFound)
	assert.ErrorIs(t, svc.ExportPNG(ctx, missing, &bytes.Buffer{}), canvas.ErrSessionNotFound)
	_, err = svc.Subscribe(ctx, missing)
	assert.ErrorIs(t, err, canvas.ErrSessionNotFound)
}

func TestServiceApplyAppendsInOrder(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, 100, 100)
	require.NoError(t, err)

	rect := model.Rectangle{X: 1, Y: 1, Width: 10, Height: 10, Color: "red", IsFilled: true}
	circle := model.Circle{X: 50, Y: 50, Radius: 5, Color: "blue", IsFilled: false}
	require.NoError(t, svc.Apply(ctx, info.ID, rect))
	require.NoError(t, svc.Apply(ctx, info.ID, circle))

	elements, err := svc.Elements(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Primitive{rect, circle}, elements)

	elements[0] = circle
	again, err := svc.Elements(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, rect, again[0], "callers must not be able to rewrite the log")

	got, err := svc.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ElementCount)
}

func TestServiceScenario(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, 800, 600)
	require.NoError(t, err)

	require.NoError(t, svc.Apply(ctx, info.ID, model.Rectangle{X: 50, Y: 50, Width: 100, Height: 60, Color: "red", IsFilled: true}))
	require.NoError(t, svc.Apply(ctx, info.ID, model.Circle{X: 200, Y: 200, Radius: 50, Color: "blue", IsFilled: true}))

	img := decodePNG(t, svc, info.ID)
	assert.Equal(t, image.Rect(0, 0, 800, 600), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, nrgbaAt(img, 100, 80))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, nrgbaAt(img, 200, 200))
	assert.Zero(t, nrgbaAt(img, 400, 400).A)
	assert.Zero(t, nrgbaAt(img, 10, 10).A)

	var pdf bytes.Buffer
	require.NoError(t, svc.ExportPDF(ctx, info.ID, &pdf))
	assert.Len(t, regexp.MustCompile(`/Type\s*/Page[^s]`).FindAllIndex(pdf.Bytes(), -1), 1)
	assert.Regexp(t, `/MediaBox\s*\[\s*0\s+0\s+800(\.0+)?\s+600(\.0+)?\s*\]`, pdf.String())
}

func TestServiceExportIsSnapshot(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, 20, 20)
	require.NoError(t, err)

	before := decodePNG(t, svc, info.ID)
	require.NoError(t, svc.Apply(ctx, info.ID, model.Rectangle{Width: 20, Height: 20, Color: "red", IsFilled: true}))
	after := decodePNG(t, svc, info.ID)

	assert.Zero(t, nrgbaAt(before, 10, 10).A)
	assert.Equal(t, uint8(255), nrgbaAt(after, 10, 10).R)
}

func TestServiceConcurrentApply(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, 64, 64)
	require.NoError(t, err)

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				rect := model.Rectangle{X: float64(w * 8), Y: float64(i), Width: 8, Height: 2, Color: "blue", IsFilled: true}
				assert.NoError(t, svc.Apply(ctx, info.ID, rect))
				assert.NoError(t, svc.ExportPNG(ctx, info.ID, &bytes.Buffer{}))
			}
		}(w)
	}
	wg.Wait()

	elements, err := svc.Elements(ctx, info.ID)
	require.NoError(t, err)
	assert.Len(t, elements, workers*perWorker)
}

func TestServiceSubscribeReplaysAndStreams(t *testing.T) {
	svc := canvas.NewService(canvas.DefaultOptions())
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, 50, 50)
	require.NoError(t, err)

	first := model.Rectangle{Width: 5, Height: 5, Color: "red", IsFilled: true}
	require.NoError(t, svc.Apply(ctx, info.ID, first))

	sub, err := svc.Subscribe(ctx, info.ID)
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, []model.Primitive{first}, sub.Backlog)
	assert.Equal(t, 1, sub.Info.ElementCount)

	second := model.Text{Content: "hi", X: 1, Y: 20, FontSize: 12, FontFamily: "Arial", Color: "#000", Align: model.AlignLeft}
	require.NoError(t, svc.Apply(ctx, info.ID, second))

	ev := <-sub.Events
	assert.Equal(t, 2, ev.Seq)
	assert.Equal(t, second, ev.Element)

	sub.Close()
	sub.Close()
	_, open := <-sub.Events
	assert.False(t, open)
}

func TestServiceDropsSlowSubscriber(t *testing.T) {
	opts := canvas.DefaultOptions()
	opts.MirrorBuffer = 1
	svc := canvas.NewService(opts)
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, 10, 10)
	require.NoError(t, err)

	sub, err := svc.Subscribe(ctx, info.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Apply(ctx, info.ID, model.Rectangle{Width: 1, Height: 1, Color: "red", IsFilled: true}))
	}

	ev, ok := <-sub.Events
	require.True(t, ok)
	assert.Equal(t, 1, ev.Seq)
	_, ok = <-sub.Events
	assert.False(t, ok, "slow subscriber should be closed")
	sub.Close()
}
