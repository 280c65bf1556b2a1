package extension

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mutagen-io/treewatch/pkg/treewatch"
)

// ErrorSignature is the message used when pushing error descriptions to the
// host as external events.
const ErrorSignature = "###E###"

var (
	// ErrUnknownMethod indicates that a method name isn't registered.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrUnknownProperty indicates that a property name isn't registered.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrParameterCount indicates that a method was invoked with the wrong
	// number of arguments.
	ErrParameterCount = errors.New("invalid parameter count")
	// ErrReadOnly indicates an attempt to set a read-only property.
	ErrReadOnly = errors.New("property is read-only")
	// ErrInvalidArgument indicates that an argument has an unexpected type.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Value is a host variant value. Supported dynamic types are nil, bool,
// float64, and string.
type Value interface{}

// Host receives external events from a component.
type Host interface {
	// ExternalEvent delivers an event with the specified source, message, and
	// data to the host.
	ExternalEvent(source, message, data string)
}

// HostFunc adapts a function to the Host interface.
type HostFunc func(source, message, data string)

// ExternalEvent implements Host.ExternalEvent.
func (f HostFunc) ExternalEvent(source, message, data string) {
	f(source, message, data)
}

// ErrorSource provides the pending error state exposed through a component's
// built-in methods.
type ErrorSource interface {
	// LastError returns and clears the pending error message.
	LastError() string
	// HasError indicates whether or not an error is pending.
	HasError() bool
}

// Procedure is a method without a result.
type Procedure func(args []Value) error

// Function is a method with a result.
type Function func(args []Value) (Value, error)

// method is a registered method.
type method struct {
	// names are the English and Russian method names.
	names [2]string
	// parameters is the number of required arguments.
	parameters int
	// procedure is the handler for procedures.
	procedure Procedure
	// function is the handler for functions.
	function Function
}

// property is a registered property.
type property struct {
	// names are the English and Russian property names.
	names [2]string
	// get reads the property.
	get func() Value
	// set writes the property. It's nil for read-only properties.
	set func(Value) error
}

// Component is a named collection of methods and properties invocable by a
// host. Names are matched case-insensitively in either language. Method and
// property registration must complete before the component is used
// concurrently.
type Component struct {
	// name is the component name, used as the external event source.
	name string
	// host receives external events.
	host Host
	// methods are the registered methods, keyed by lowercase name.
	methods map[string]*method
	// properties are the registered properties, keyed by lowercase name.
	properties map[string]*property
}

// NewComponent creates a new component with the built-in Version, Problem, and
// Error methods. The host may be nil.
func NewComponent(name string, host Host, errorSource ErrorSource) *Component {
	// Use a no-op host if none was provided.
	if host == nil {
		host = HostFunc(func(_, _, _ string) {})
	}

	// Create the component.
	c := &Component{
		name:       name,
		host:       host,
		methods:    make(map[string]*method),
		properties: make(map[string]*property),
	}

	// Register built-in methods.
	c.AddFunction("Version", "Версия", 0, func([]Value) (Value, error) {
		return treewatch.Version, nil
	})
	c.AddFunction("Problem", "Проблема", 0, func([]Value) (Value, error) {
		return errorSource.LastError(), nil
	})
	c.AddFunction("Error", "Ошибка", 0, func([]Value) (Value, error) {
		return errorSource.HasError(), nil
	})

	// Done.
	return c
}

// Name returns the component name.
func (c *Component) Name() string {
	return c.name
}

// register records a method under both of its names.
func (c *Component) register(m *method) {
	for _, name := range m.names {
		c.methods[strings.ToLower(name)] = m
	}
}

// AddProcedure registers a method without a result.
func (c *Component) AddProcedure(english, russian string, parameters int, procedure Procedure) {
	c.register(&method{names: [2]string{english, russian}, parameters: parameters, procedure: procedure})
}

// AddFunction registers a method with a result.
func (c *Component) AddFunction(english, russian string, parameters int, function Function) {
	c.register(&method{names: [2]string{english, russian}, parameters: parameters, function: function})
}

// AddProperty registers a property. If set is nil, the property is read-only.
func (c *Component) AddProperty(english, russian string, get func() Value, set func(Value) error) {
	p := &property{names: [2]string{english, russian}, get: get, set: set}
	for _, name := range p.names {
		c.properties[strings.ToLower(name)] = p
	}
}

// Methods returns the sorted English names of all registered methods.
func (c *Component) Methods() []string {
	seen := make(map[*method]bool, len(c.methods))
	var result []string
	for _, m := range c.methods {
		if !seen[m] {
			seen[m] = true
			result = append(result, m.names[0])
		}
	}
	sort.Strings(result)
	return result
}

// HasResult indicates whether or not the named method returns a value.
func (c *Component) HasResult(name string) (bool, error) {
	m, ok := c.methods[strings.ToLower(name)]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return m.function != nil, nil
}

// Invoke calls the named method with the specified arguments. Procedures
// return a nil value.
func (c *Component) Invoke(name string, args ...Value) (Value, error) {
	// Look up the method.
	m, ok := c.methods[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}

	// Validate the argument count.
	if len(args) != m.parameters {
		return nil, fmt.Errorf("%w: %s expects %d, received %d", ErrParameterCount, m.names[0], m.parameters, len(args))
	}

	// Invoke the handler.
	if m.function != nil {
		return m.function(args)
	}
	return nil, m.procedure(args)
}

// Property reads the named property.
func (c *Component) Property(name string) (Value, error) {
	p, ok := c.properties[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return p.get(), nil
}

// SetProperty writes the named property.
func (c *Component) SetProperty(name string, value Value) error {
	p, ok := c.properties[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	} else if p.set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, p.names[0])
	}
	return p.set(value)
}

// Emit delivers an external event to the host using the component name as the
// source.
func (c *Component) Emit(message, data string) {
	c.host.ExternalEvent(c.name, message, data)
}

// SendError pushes an error description to the host.
func (c *Component) SendError(message string) {
	c.Emit(ErrorSignature, message)
}

// stringArgument extracts a string argument.
func stringArgument(args []Value, index int) (string, error) {
	if value, ok := args[index].(string); ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: argument %d must be a string", ErrInvalidArgument, index+1)
}
