package main

import (
	"bytes"
	"image/png"
	"log"
	"strconv"

	svg "github.com/ajstarks/svgo"
	"github.com/gofiber/fiber/v2"

	"github.com/lcdmon/minidash/lcdpipe"
)

// httpServer exposes the pipeline over HTTP: telemetry, the current front
// frame as PNG, the zone layout as SVG, and the external redraw surface.
func httpServer(addr string, sched *lcdpipe.Scheduler) {
	app := newHTTPApp(sched)
	log.Println("starting http server on", addr)
	log.Fatal(app.Listen(addr))
}

func newHTTPApp(sched *lcdpipe.Scheduler) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/", func(c *fiber.Ctx) error {
		tel := sched.Telemetry()
		return c.JSON(fiber.Map{
			"status": "up",
			"fps":    tel.FPS(),
			"skip":   tel.SkipRate(),
			"faults": tel.TransferFaults(),
			"frames": tel.Frames(),
		})
	})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(sched.Telemetry().Snapshot())
	})
	app.Get("/frame", func(c *fiber.Ctx) error { return serveFrame(c, sched) })
	app.Get("/layout.svg", serveLayout)
	app.Post("/redraw", func(c *fiber.Ctx) error { return redrawZone(c, sched) })
	app.Post("/full", func(c *fiber.Ctx) error {
		sched.ForceFullRedraw()
		return c.SendString("full redraw queued")
	})
	return app
}

// serveFrame encodes a snapshot of the displayed frame as PNG. The copy is
// taken under the buffer-pair lock; reading the live front buffer here
// would race with painters once the scheduler swaps it back.
func serveFrame(c *fiber.Ctx, sched *lcdpipe.Scheduler) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, sched.FrameSnapshot()); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("failed to encode frame")
	}
	c.Set("Content-Type", "image/png")
	c.Set("Content-Length", strconv.Itoa(buf.Len()))
	return c.Send(buf.Bytes())
}

// serveLayout renders the zone map as an annotated SVG wireframe.
func serveLayout(c *fiber.Ctx) error {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(320, 170)
	canvas.Rect(0, 0, 320, 170, "fill:black")
	for _, z := range zoneLayout {
		canvas.Rect(z.Bounds.X, z.Bounds.Y, z.Bounds.W, z.Bounds.H,
			"fill:none;stroke:lime;stroke-width:1")
		canvas.Text(z.Bounds.X+2, z.Bounds.Y+10, z.Name,
			"fill:white;font-size:8px;font-family:monospace")
	}
	canvas.End()
	c.Set("Content-Type", "image/svg+xml")
	return c.Send(buf.Bytes())
}

// redrawZone accepts {"zone": "name"} and marks that zone dirty. Unknown
// zone names are ignored by the registry, matching the inbound contract.
func redrawZone(c *fiber.Ctx, sched *lcdpipe.Scheduler) error {
	var body struct {
		Zone string `json:"zone"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid JSON")
	}
	if body.Zone == "" {
		return c.Status(fiber.StatusBadRequest).SendString("zone required")
	}
	sched.Registry().MarkZoneDirty(body.Zone)
	return c.SendString("redraw queued for " + body.Zone)
}
