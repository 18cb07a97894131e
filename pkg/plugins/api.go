// ./pkg/plugins/api.go
package plugins

import (
	"context"
	"reflect"
)

// ImportPath is the path under which plugin sources can import this package.
const ImportPath = "github.com/santoshkal/mcp-server-http-time/pkg/plugins"

// ToolHandler defines the signature that every plugin tool handler must implement.
// A returned string becomes the text of the tool result; any other value is encoded as JSON.
type ToolHandler func(ctx context.Context, parameters map[string]interface{}) (interface{}, error)

// Text wraps a plain string result so plugins can state intent explicitly.
type Text string

// HandlerSymbols exports this package to the yaegi interpreter.
func HandlerSymbols() map[string]map[string]reflect.Value {
	return map[string]map[string]reflect.Value{
		ImportPath + "/plugins": {
			"ToolHandler": reflect.ValueOf((*ToolHandler)(nil)),
			"Text":        reflect.ValueOf((*Text)(nil)),
		},
	}
}
