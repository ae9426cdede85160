package bundler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/octanelabs/bolt/pkg/userop"
	"github.com/octanelabs/bolt/version"
)

type mempoolStatsResp struct {
	Outstanding          int `json:"outstanding"`
	AvailableOutstanding int `json:"availableOutstanding"`
	Processing           int `json:"processing"`
	Submitted            int `json:"submitted"`
}

type gasPriceResp struct {
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
}

// startHttpServer exposes the operational surface: health, metrics and a
// couple of read-only inspection endpoints. The bundler RPC API proper lives
// in front of this process, not here.
func (b *Bundler) startHttpServer(ctx context.Context) {
	if b.config.OpsBindAddress == "" {
		b.logger.Info("ops HTTP server disabled: no ops_bind_address configured")
		return
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.Get(),
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{})))

	e.GET("/v1/mempool", func(c echo.Context) error {
		return c.JSON(http.StatusOK, mempoolStatsResp{
			Outstanding:          len(b.mempool.DumpOutstanding()),
			AvailableOutstanding: len(b.mempool.DumpAvailableOutstanding()),
			Processing:           len(b.mempool.DumpProcessing()),
			Submitted:            len(b.mempool.DumpSubmitted()),
		})
	})

	e.GET("/v1/mempool/outstanding", func(c echo.Context) error {
		hashes := lo.Map(b.mempool.DumpOutstanding(), func(info userop.UserOperationInfo, _ int) string {
			return info.UserOpHash.Hex()
		})
		return c.JSON(http.StatusOK, hashes)
	})

	e.GET("/v1/gas-price", func(c echo.Context) error {
		price, err := b.gasPrice.GetGasPrice(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, gasPriceResp{
			MaxFeePerGas:         price.MaxFeePerGas.String(),
			MaxPriorityFeePerGas: price.MaxPriorityFeePerGas.String(),
		})
	})

	b.httpServer = e

	go func() {
		if err := e.Start(b.config.OpsBindAddress); err != nil && err != http.ErrServerClosed {
			b.logger.Errorf("ops HTTP server stopped: %v", err)
		}
	}()
}
