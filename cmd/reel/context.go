package main

import (
	"strings"
	"sync"

	"reel/internal/client"
	"reel/internal/config"
)

type commandContext struct {
	addressFlag *string
	tokenFlag   *string
	configFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addressFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		addressFlag: addressFlag,
		tokenFlag:   tokenFlag,
		configFlag:  configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiClient builds a daemon client from flags, falling back to the
// configured bind address and token.
func (c *commandContext) apiClient() (*client.Client, error) {
	address := ""
	token := ""
	if c.addressFlag != nil {
		address = strings.TrimSpace(*c.addressFlag)
	}
	if c.tokenFlag != nil {
		token = strings.TrimSpace(*c.tokenFlag)
	}
	if address == "" || token == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		if address == "" {
			address = cfg.API.Bind
		}
		if token == "" {
			token = cfg.API.Token
		}
	}
	return client.New(address, token), nil
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	apiClient, err := c.apiClient()
	if err != nil {
		return err
	}
	return fn(apiClient)
}
