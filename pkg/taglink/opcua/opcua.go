// Package opcua binds taglink to an OPC UA server through gopcua.
// Containers are Object nodes beneath the Objects folder and tags are
// their Variable children.  Namespaces may be given as an index
// ("3") or as a namespace URI.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"github.com/hashicorp/go-hclog"

	"github.com/sda-platform/dronebridge/pkg/taglink"
)

// Dialer opens sessions against one OPC UA endpoint.
type Dialer struct {
	l hclog.Logger

	endpoint string
	timeout  time.Duration
}

// New returns a dialer for an opc.tcp:// endpoint.
func New(endpoint string, opts ...Option) *Dialer {
	d := &Dialer{
		l:        hclog.NewNullLogger(),
		endpoint: endpoint,
		timeout:  time.Second * 5,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type session struct {
	c *opcua.Client
}

// Dial connects without security, which is how the simulation
// servers this talks to are normally configured.
func (d *Dialer) Dial(ctx context.Context) (taglink.Session, error) {
	c, err := opcua.NewClient(d.endpoint,
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.RequestTimeout(d.timeout),
	)
	if err != nil {
		return nil, &taglink.TransportError{Op: "dial", Tag: d.endpoint, Err: err}
	}

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := c.Connect(cctx); err != nil {
		return nil, &taglink.TransportError{Op: "dial", Tag: d.endpoint, Err: err}
	}
	d.l.Info("Connected", "endpoint", d.endpoint)
	return &session{c: c}, nil
}

func (s *session) namespaceIndex(ctx context.Context, ns string) (uint16, error) {
	if idx, err := strconv.ParseUint(ns, 10, 16); err == nil {
		return uint16(idx), nil
	}
	idx, err := s.c.FindNamespace(ctx, ns)
	if err != nil {
		return 0, fmt.Errorf("namespace %q: %w", ns, taglink.ErrNotFound)
	}
	return idx, nil
}

func (s *session) objects() *opcua.Node {
	return s.c.Node(ua.NewNumericNodeID(0, id.ObjectsFolder))
}

// translate resolves name beneath parent.  Status codes from the
// server mean the path does not exist; anything else is a transport
// failure.
func (s *session) translate(ctx context.Context, parent *opcua.Node, ns, name string) (*opcua.Node, error) {
	idx, err := s.namespaceIndex(ctx, ns)
	if err != nil {
		return nil, err
	}
	nid, err := parent.TranslateBrowsePathInNamespaceToNodeID(ctx, idx, name)
	if err != nil {
		var sc ua.StatusCode
		if errors.As(err, &sc) {
			return nil, fmt.Errorf("%d:%s: %w", idx, name, taglink.ErrNotFound)
		}
		return nil, &taglink.TransportError{Op: "lookup", Tag: name, Err: err}
	}
	return s.c.Node(nid), nil
}

func (s *session) Lookup(ctx context.Context, namespace, name string) (taglink.Container, error) {
	n, err := s.translate(ctx, s.objects(), namespace, name)
	if err != nil {
		return nil, err
	}
	return &container{s: s, n: n, name: name}, nil
}

func (s *session) Containers(ctx context.Context) ([]taglink.Container, error) {
	children, err := s.objects().Children(ctx, id.HierarchicalReferences, ua.NodeClassObject)
	if err != nil {
		return nil, &taglink.TransportError{Op: "browse", Err: err}
	}
	out := make([]taglink.Container, 0, len(children))
	for _, n := range children {
		qn, err := n.BrowseName(ctx)
		if err != nil {
			// Nodes that can't report a name can't be matched.
			continue
		}
		out = append(out, &container{s: s, n: n, name: qn.Name})
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error {
	return s.c.Close(ctx)
}

type container struct {
	s    *session
	n    *opcua.Node
	name string
}

func (c *container) Name() string { return c.name }

func (c *container) Tag(ctx context.Context, namespace, name string) (taglink.Tag, error) {
	n, err := c.s.translate(ctx, c.n, namespace, name)
	if err != nil {
		return nil, err
	}
	return &tag{s: c.s, n: n, name: name}, nil
}

func (c *container) Tags(ctx context.Context) ([]taglink.Tag, error) {
	children, err := c.n.Children(ctx, id.HierarchicalReferences, ua.NodeClassVariable)
	if err != nil {
		return nil, &taglink.TransportError{Op: "browse", Tag: c.name, Err: err}
	}
	out := make([]taglink.Tag, 0, len(children))
	for _, n := range children {
		qn, err := n.BrowseName(ctx)
		if err != nil {
			continue
		}
		out = append(out, &tag{s: c.s, n: n, name: qn.Name})
	}
	return out, nil
}

type tag struct {
	s    *session
	n    *opcua.Node
	name string
}

func (t *tag) Name() string { return t.name }

func (t *tag) Read(ctx context.Context) (float64, error) {
	v, err := t.n.Value(ctx)
	if err != nil {
		return 0, &taglink.TransportError{Op: "read", Tag: t.name, Err: err}
	}
	f, err := toFloat(v.Value())
	if err != nil {
		return 0, &taglink.TransportError{Op: "read", Tag: t.name, Err: err}
	}
	return f, nil
}

func (t *tag) Write(ctx context.Context, v float64) error {
	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{{
			NodeID:      t.n.ID,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask: ua.DataValueValue,
				Value:        ua.MustVariant(v),
			},
		}},
	}
	resp, err := t.s.c.Write(ctx, req)
	if err != nil {
		return &taglink.TransportError{Op: "write", Tag: t.name, Err: err}
	}
	if len(resp.Results) == 0 {
		return &taglink.TransportError{Op: "write", Tag: t.name, Err: errors.New("empty write response")}
	}
	if resp.Results[0] != ua.StatusOK {
		return &taglink.TransportError{Op: "write", Tag: t.name, Err: resp.Results[0]}
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
