// ./pkg/reg/plugintools.go
package reg

import (
	"bytes"
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/santoshkal/mcp-server-http-time/pkg/config"
	"github.com/santoshkal/mcp-server-http-time/pkg/plugins"
	"github.com/santoshkal/mcp-server-http-time/pkg/schema"
	"github.com/santoshkal/mcp-server-http-time/pkg/utils"
)

var logger = utils.Logger

// RegisterToolsFromConfig evaluates each enabled plugin's source using Yaegi
// and registers the resulting tools with r.
func RegisterToolsFromConfig(r Registrar, pluginConfigs []config.PluginConfig) error {
	for _, p := range pluginConfigs {
		if !p.Enabled {
			logger.Debugf("Skipping disabled plugin tool: %s", p.Name)
			continue
		}

		handler, err := loadPluginHandler(p)
		if err != nil {
			return fmt.Errorf("plugin tool %s: %w", p.Name, err)
		}

		if err := r.Register(Tool{
			Name:        p.Name,
			Title:       p.Title,
			Description: p.Description,
			Schema:      p.Schema(),
			Handler:     adaptPluginHandler(handler),
		}); err != nil {
			return err
		}
		logger.Infof("Registered plugin tool: %s", p.Name)
	}
	return nil
}

// loadPluginHandler interprets the plugin source and resolves its Handler function.
func loadPluginHandler(p config.PluginConfig) (plugins.ToolHandler, error) {
	src := p.Source
	if p.Path != "" {
		code, err := os.ReadFile(p.Path)
		if err != nil {
			return nil, fmt.Errorf("error reading plugin file: %w", err)
		}
		src = string(code)
	}

	pkgName, err := packageName(src)
	if err != nil {
		return nil, err
	}

	// Create a new yaegi interpreter instance.
	var stdout, stderr bytes.Buffer
	i := interp.New(interp.Options{Stdout: &stdout, Stderr: &stderr})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("error loading package symbols: %w", err)
	}
	if err := i.Use(plugins.HandlerSymbols()); err != nil {
		return nil, fmt.Errorf("error loading handler symbols: %w", err)
	}

	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("failed to evaluate plugin source: %w", err)
	}

	// Retrieve the Handler symbol.
	v, err := i.Eval(pkgName + ".Handler")
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve Handler symbol: %w", err)
	}

	// Assert that the symbol has the correct signature.
	handler, ok := v.Interface().(func(context.Context, map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("handler does not have the signature func(context.Context, map[string]interface{}) (interface{}, error)")
	}
	return handler, nil
}

func adaptPluginHandler(h plugins.ToolHandler) Handler {
	return func(ctx context.Context, args schema.Args) (interface{}, error) {
		return h(ctx, map[string]interface{}(args))
	}
}

func packageName(src string) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), "plugin.go", src, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("invalid plugin source: %w", err)
	}
	return f.Name.Name, nil
}
