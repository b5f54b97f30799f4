package controllers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
	"github.com/ManuelReschke/TrackFox/internal/pkg/pixel"
)

// transparentGIF is a 1x1 transparent GIF89a.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// PixelRecorder stores one visitor touch.
type PixelRecorder interface {
	Record(ctx context.Context, hit pixel.Hit) (*models.LastTouch, error)
}

type PixelController struct {
	recorder PixelRecorder
}

func NewPixelController(recorder PixelRecorder) *PixelController {
	return &PixelController{recorder: recorder}
}

// HandlePixel accepts a JSON body on POST (sendBeacon posts text/plain, so
// the content type is not checked) and the query string on GET. The host
// page always gets the GIF back, whatever happened.
func (pc *PixelController) HandlePixel(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := logger.FromContext(ctx)

	var hit pixel.Hit
	var err error
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		err = json.Unmarshal(c.Body(), &hit)
	} else {
		err = c.QueryParser(&hit)
	}

	if err != nil {
		log.Info("pixel payload unreadable", zap.Error(err), zap.String("ip", GetClientIP(c)))
	} else if _, err := pc.recorder.Record(ctx, hit); err != nil {
		log.Warn("pixel touch not recorded",
			zap.Error(err),
			zap.String("visitor_id", hit.VisitorID),
			zap.String("ip", GetClientIP(c)),
		)
	}

	return SendPixel(c)
}

// SendPixel writes the uncacheable 1x1 GIF.
func SendPixel(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set(fiber.HeaderContentType, "image/gif")
	return c.Status(fiber.StatusOK).Send(transparentGIF)
}
