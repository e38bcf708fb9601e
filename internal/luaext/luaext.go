// Package luaext loads extension units written as Lua scripts. A script
// declares component renderers by calling the global `renderer` function:
//
//	renderer{
//	    type = "badge",
//	    display = "Badge",
//	    default_config = '{"text":""}',
//	    render = function(config)
//	        return "<span class=\"badge\">" .. config.text .. "</span>"
//	    end,
//	}
//
// Each unit owns a private Lua state; renderer calls into that state are
// serialized because Lua states are not safe for concurrent use.
package luaext

import (
	"encoding/json"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/zot/modhost/api"
	"github.com/zot/modhost/internal/config"
)

// Unit is one loaded Lua extension unit.
type Unit struct {
	name      string
	config    *config.Config
	state     *lua.LState
	renderers []api.ComponentRenderer
	mu        sync.Mutex
}

// LoadUnit runs a script and collects the renderers it declared. A script
// error leaves no unit behind.
func LoadUnit(cfg *config.Config, name, path string) (*Unit, error) {
	L := lua.NewState()
	unit := &Unit{
		name:   name,
		config: cfg,
		state:  L,
	}
	L.SetGlobal("renderer", L.NewFunction(unit.declareRenderer))

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("script error: %w", err)
	}

	if len(unit.renderers) == 0 {
		cfg.Log(1, "lua unit %s declared no renderers", name)
	}
	return unit, nil
}

// Registration returns the unit's contributed extension points.
func (u *Unit) Registration() api.Registration {
	return api.Registration{Renderers: u.renderers}
}

// Close releases the unit's Lua state. Only safe once nothing can render
// through it any more.
func (u *Unit) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.Close()
}

// declareRenderer implements the `renderer` global. It validates the
// declaration table and raises a Lua error on a bad one, which fails the
// whole script (and therefore the unit).
func (u *Unit) declareRenderer(L *lua.LState) int {
	tbl := L.CheckTable(1)

	typ, ok := tbl.RawGetString("type").(lua.LString)
	if !ok || typ == "" {
		L.RaiseError("renderer declaration needs a 'type' string")
		return 0
	}

	display := string(typ)
	if d, ok := tbl.RawGetString("display").(lua.LString); ok {
		display = string(d)
	}

	defaultConfig := json.RawMessage("{}")
	if d, ok := tbl.RawGetString("default_config").(lua.LString); ok {
		if !json.Valid([]byte(d)) {
			L.RaiseError("renderer %s: default_config is not valid JSON", typ)
			return 0
		}
		defaultConfig = json.RawMessage(d)
	}

	fn, ok := tbl.RawGetString("render").(*lua.LFunction)
	if !ok {
		L.RaiseError("renderer %s needs a 'render' function", typ)
		return 0
	}

	u.renderers = append(u.renderers, &Renderer{
		unit:          u,
		componentType: string(typ),
		display:       display,
		defaultConfig: defaultConfig,
		fn:            fn,
	})
	return 0
}

// Renderer adapts a Lua render function to api.ComponentRenderer.
type Renderer struct {
	unit          *Unit
	componentType string
	display       string
	defaultConfig json.RawMessage
	fn            *lua.LFunction
}

// Type returns the component-type key.
func (r *Renderer) Type() string {
	return r.componentType
}

// DisplayName returns the human-readable name.
func (r *Renderer) DisplayName() string {
	return r.display
}

// DefaultConfig returns the declared default configuration.
func (r *Renderer) DefaultConfig() json.RawMessage {
	return r.defaultConfig
}

// RenderHTML calls the script's render function with the component
// configuration decoded into a Lua table.
func (r *Renderer) RenderHTML(cfg json.RawMessage) (string, error) {
	r.unit.mu.Lock()
	defer r.unit.mu.Unlock()

	L := r.unit.state

	var decoded any
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &decoded); err != nil {
			return "", fmt.Errorf("component config is not valid JSON: %w", err)
		}
	}

	if err := L.CallByParam(lua.P{
		Fn:      r.fn,
		NRet:    1,
		Protect: true,
	}, toLua(L, decoded)); err != nil {
		return "", fmt.Errorf("lua render failed: %w", err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	str, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("lua render returned %s, want string", ret.Type())
	}
	return string(str), nil
}

// toLua converts a decoded JSON value into a Lua value.
func toLua(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []any:
		tbl := L.NewTable()
		for _, item := range v {
			tbl.Append(toLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for key, item := range v {
			tbl.RawSetString(key, toLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}
