package app

import (
	"fmt"

	gatewayService "github.com/echocipher/carrier/internal/gateway/service"
)

// Gateway returns the encoder/decoder gateway selected by GATEWAY_DRIVER.
func (c *Container) Gateway() (gatewayService.Gateway, error) {
	var err error
	c.gatewayInit.Do(func() {
		c.gateway, err = c.initGateway()
		if err != nil {
			c.initErrors["gateway"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["gateway"]; exists {
		return nil, storedErr
	}
	return c.gateway, nil
}

func (c *Container) initGateway() (gatewayService.Gateway, error) {
	gateway, err := gatewayService.NewGateway(gatewayService.Config{
		Driver:               c.config.GatewayDriver,
		URL:                  c.config.GatewayURL,
		APIKey:               c.config.GatewayAPIKey,
		Timeout:              c.config.GatewayTimeout,
		Command:              c.config.GatewayCommand,
		Script:               c.config.GatewayScript,
		WorkDir:              c.config.UploadDir,
		DefaultMaxChunkBytes: c.config.GatewayDefaultMaxChunkBytes,
		MaxResponseBytes:     c.config.GatewayMaxResponseBytes,
	}, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for gateway: %w", err)
		}
		return gatewayService.NewGatewayWithMetrics(gateway, businessMetrics), nil
	}

	return gateway, nil
}
