package types

// Container is an opaque handle to the host's rendering surface. The
// runtime never inspects it, it is forwarded to adapters untouched.
type Container any

// Props is the property bag forwarded to an adapter on mount and update.
// The runtime never inspects its contents.
type Props map[string]any

// ComponentAdapter is a framework-agnostic UI capability. The adapter
// lifecycle controller is the sole caller of these methods and owns the
// mounted/unmounted state. Implementations must not retain the container
// reference past Unmount.
type ComponentAdapter interface {
	Mount(container Container, props Props) error
	Update(props Props) error
	Unmount() error
}

// ComponentKind tags the variant carried by a Component
type ComponentKind int

const (
	// ComponentNone indicates no component is declared
	ComponentNone ComponentKind = iota
	// ComponentNative is a framework-native descriptor, passed through
	// untouched to the host's rendering collaborator
	ComponentNative
	// ComponentAdapted is a framework-agnostic adapter driven by the
	// adapter lifecycle controller
	ComponentAdapted
)

// Component is a capability-tagged UI slot: either a framework-native
// descriptor the runtime passes through, or an adapter it drives.
type Component struct {
	Kind    ComponentKind
	Native  any
	Adapter ComponentAdapter
}

// NativeComponent wraps a framework-native descriptor
func NativeComponent(v any) Component {
	return Component{Kind: ComponentNative, Native: v}
}

// AdaptedComponent wraps a framework-agnostic adapter
func AdaptedComponent(a ComponentAdapter) Component {
	return Component{Kind: ComponentAdapted, Adapter: a}
}

// IsZero reports whether the slot is empty
func (c Component) IsZero() bool {
	return c.Kind == ComponentNone
}
