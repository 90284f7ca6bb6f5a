package controller

import (
	"github.com/gofiber/fiber/v2"
)

type ScanController struct{}

func NewScanController() *ScanController {
	return &ScanController{}
}

// AuthorizeScan runs after the quota middleware has spent one scan from
// the daily budget. The client calls this before invoking the external
// vision model; the model itself never transits this service.
func (sc *ScanController) AuthorizeScan(c *fiber.Ctx) error {
	remaining, _ := c.Locals("scans_remaining").(int)
	return c.JSON(fiber.Map{
		"allowed":         true,
		"scans_remaining": remaining,
	})
}
