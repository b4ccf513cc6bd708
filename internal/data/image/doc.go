package image

// The on-disk image mirrors the metadata model. Type references are written
// as "scope:full name"; definitions inside the same image are referenced as
// "full name::index" into the declaring type's method or field list.

type assemblyDoc struct {
	Name       string      `toml:"name"`
	Version    string      `toml:"version,omitempty"`
	PublicKey  string      `toml:"public_key,omitempty"`
	Signed     bool        `toml:"signed,omitempty"`
	References []refDoc    `toml:"references,omitempty"`
	Attributes []attrDoc   `toml:"attributes,omitempty"`
	Modules    []moduleDoc `toml:"modules"`
}

type refDoc struct {
	Name    string `toml:"name"`
	Version string `toml:"version,omitempty"`
}

type moduleDoc struct {
	Name        string         `toml:"name"`
	MarkupTypes []string       `toml:"markup_types,omitempty"`
	TypeRefs    []string       `toml:"type_refs,omitempty"`
	MemberRefs  []memberRefDoc `toml:"member_refs,omitempty"`
	Resources   []resourceDoc  `toml:"resources,omitempty"`
	Types       []typeDoc      `toml:"types,omitempty"`
}

type memberRefDoc struct {
	Kind         string   `toml:"kind"`
	Declaring    string   `toml:"declaring"`
	Name         string   `toml:"name"`
	Returns      string   `toml:"returns,omitempty"`
	Params       []string `toml:"params,omitempty"`
	GenericArity int      `toml:"generic_arity,omitempty"`
}

type resourceDoc struct {
	Name string `toml:"name"`
	Data string `toml:"data,omitempty"`
}

type typeDoc struct {
	Namespace     string        `toml:"namespace,omitempty"`
	Name          string        `toml:"name"`
	Access        string        `toml:"access,omitempty"`
	Flags         []string      `toml:"flags,omitempty"`
	Base          string        `toml:"base,omitempty"`
	Interfaces    []string      `toml:"interfaces,omitempty"`
	GenericParams []string      `toml:"generic_params,omitempty"`
	Attributes    []attrDoc     `toml:"attributes,omitempty"`
	Fields        []fieldDoc    `toml:"fields,omitempty"`
	Methods       []methodDoc   `toml:"methods,omitempty"`
	Properties    []propertyDoc `toml:"properties,omitempty"`
	Events        []eventDoc    `toml:"events,omitempty"`
	Nested        []typeDoc     `toml:"nested,omitempty"`
}

type methodDoc struct {
	Name          string     `toml:"name"`
	Access        string     `toml:"access,omitempty"`
	Flags         []string   `toml:"flags,omitempty"`
	Returns       string     `toml:"returns,omitempty"`
	Params        []paramDoc `toml:"params,omitempty"`
	GenericParams []string   `toml:"generic_params,omitempty"`
	// Overrides index the module's member_refs.
	Overrides  []int     `toml:"overrides,omitempty"`
	Attributes []attrDoc `toml:"attributes,omitempty"`
	Body       []insDoc  `toml:"body,omitempty"`
}

type paramDoc struct {
	Name       string    `toml:"name,omitempty"`
	Type       string    `toml:"type"`
	Attributes []attrDoc `toml:"attributes,omitempty"`
}

type fieldDoc struct {
	Name       string    `toml:"name"`
	Type       string    `toml:"type"`
	Access     string    `toml:"access,omitempty"`
	Flags      []string  `toml:"flags,omitempty"`
	Attributes []attrDoc `toml:"attributes,omitempty"`
}

// Accessors index the declaring type's methods.
type propertyDoc struct {
	Name       string    `toml:"name"`
	Type       string    `toml:"type"`
	Params     []string  `toml:"params,omitempty"`
	Getter     *int      `toml:"getter,omitempty"`
	Setter     *int      `toml:"setter,omitempty"`
	Attributes []attrDoc `toml:"attributes,omitempty"`
}

type eventDoc struct {
	Name       string    `toml:"name"`
	Type       string    `toml:"type"`
	Add        *int      `toml:"add,omitempty"`
	Remove     *int      `toml:"remove,omitempty"`
	Raise      *int      `toml:"raise,omitempty"`
	Attributes []attrDoc `toml:"attributes,omitempty"`
}

type attrDoc struct {
	Type  string     `toml:"type"`
	Args  []argDoc   `toml:"args,omitempty"`
	Named []namedDoc `toml:"named,omitempty"`
}

type argDoc struct {
	Type  string `toml:"type"`
	Value string `toml:"value"`
}

type namedDoc struct {
	Field bool   `toml:"field,omitempty"`
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Value string `toml:"value"`
}

// insDoc carries at most one operand.
type insDoc struct {
	Op        string  `toml:"op"`
	String    *string `toml:"string,omitempty"`
	Int       *int64  `toml:"int,omitempty"`
	TypeRef   *int    `toml:"type_ref,omitempty"`
	MemberRef *int    `toml:"member_ref,omitempty"`
	Type      string  `toml:"type,omitempty"`
	Method    string  `toml:"method,omitempty"`
	Field     string  `toml:"field,omitempty"`
}
