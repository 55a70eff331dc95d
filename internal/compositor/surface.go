package compositor

import (
	"github.com/bnema/wayseat/internal/geom"
	"github.com/bnema/wayseat/internal/listener"
	"github.com/bnema/wayseat/internal/wire"
)

// Role is an exclusive tag naming the protocol extension that governs a
// surface, e.g. a cursor or a shell toplevel.
type Role struct {
	Name string
}

// Surface is the compositor side of a wl_surface.
type Surface struct {
	resource *Resource
	role     *Role
	cursor   bool
	size     geom.Size
}

// NewSurface creates a wl_surface with the given client-allocated id.
func NewSurface(client *Client, id, version uint32) (*Surface, error) {
	s := &Surface{}
	r, err := client.NewResource(wire.MustLookup(wire.SurfaceInterface), id, version, s.handleRequest)
	if err != nil {
		return nil, err
	}
	r.SetData(s)
	s.resource = r
	return s, nil
}

// SurfaceFromResource returns the surface behind a wl_surface resource, or
// nil when r is not a surface.
func SurfaceFromResource(r *Resource) *Surface {
	if r == nil {
		return nil
	}
	s, _ := r.Data().(*Surface)
	return s
}

func (s *Surface) Resource() *Resource {
	return s.resource
}

func (s *Surface) Client() *Client {
	return s.resource.Client()
}

// ID returns the surface's object id on its client.
func (s *Surface) ID() uint32 {
	return s.resource.ID()
}

func (s *Surface) Destroyed() bool {
	return s.resource.Destroyed()
}

// AddDestroyListener implements listener.Watchable.
func (s *Surface) AddDestroyListener(l *listener.Listener) {
	s.resource.AddDestroyListener(l)
}

// Destroy destroys the surface as if the client had requested it.
func (s *Surface) Destroy() {
	s.resource.Destroy()
}

func (s *Surface) Role() *Role {
	return s.role
}

// SetRole assigns role to the surface. A surface keeps its first role for
// life: asking for a different one posts errCode on errResource and fails.
// Re-assigning the current role succeeds.
func (s *Surface) SetRole(role *Role, errResource *Resource, errCode uint32) bool {
	if s.role != nil && s.role != role {
		if errResource != nil {
			errResource.PostError(errCode, "Cannot assign role %s to wl_surface@%d, already has role %s",
				role.Name, s.ID(), s.role.Name)
		}
		return false
	}
	s.role = role
	return true
}

// MarkAsCursorSurface flags the surface as a pointer image. Cursor surfaces
// never receive pointer focus.
func (s *Surface) MarkAsCursorSurface(cursor bool) {
	s.cursor = cursor
}

func (s *Surface) IsCursorSurface() bool {
	return s.cursor
}

// DestinationSize is the surface size in surface-local coordinates.
func (s *Surface) DestinationSize() geom.Size {
	return s.size
}

func (s *Surface) SetDestinationSize(size geom.Size) {
	s.size = size
}

func (s *Surface) handleRequest(r *Resource, opcode uint16, _ *wire.Decoder) error {
	if opcode == wire.SurfaceRequestDestroy {
		r.Destroy()
	}
	// Buffer and damage requests belong to the renderer.
	return nil
}

// Output is a named display output.
type Output struct {
	Name string
}

// View is one on-screen presentation of a surface.
type View struct {
	surface *Surface
	output  *Output
}

func NewView(surface *Surface, output *Output) *View {
	return &View{surface: surface, output: output}
}

// Surface returns the viewed surface, or nil for an empty view.
func (v *View) Surface() *Surface {
	if v == nil {
		return nil
	}
	return v.surface
}

func (v *View) Output() *Output {
	if v == nil {
		return nil
	}
	return v.output
}

func (v *View) SetOutput(o *Output) {
	v.output = o
}
