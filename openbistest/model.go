package openbistest

import (
	"slices"
	"strings"
	"time"

	"github.com/mnehpets/openbis/dto"
)

type space struct {
	code        string
	description string
	registrator string
	registered  time.Time
	modified    time.Time
}

type sample struct {
	permID      string
	code        string
	typeCode    string
	space       string
	props       map[string]string
	parents     []string
	registrator string
	registered  time.Time
	modified    time.Time
	// deletion is the trash can entry holding the sample, or zero.
	deletion int64
}

func (x *sample) identifier() string {
	return "/" + x.space + "/" + x.code
}

type deletion struct {
	id      int64
	reason  string
	samples []string
}

type store struct {
	code    string
	files   []File
	uploads map[string][]File
	failure string
}

// AddSpace adds a space registered by "system".
func (s *Server) AddSpace(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addSpace(code, "", "system")
}

func (s *Server) addSpace(code, description, user string) *space {
	now := s.now()
	sp := &space{code: strings.ToUpper(code), description: description, registrator: user, registered: now, modified: now}
	s.spaces = append(s.spaces, sp)
	return sp
}

// AddSample adds a sample of type UNKNOWN to space, creating the space if
// needed, and returns its perm id. Parents are given by perm id.
func (s *Server) AddSample(spaceCode, code string, parents ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findSpace(spaceCode) == nil {
		s.addSpace(spaceCode, "", "system")
	}
	return s.addSample(&sample{
		code:     strings.ToUpper(code),
		typeCode: "UNKNOWN",
		space:    strings.ToUpper(spaceCode),
		parents:  parents,
	}, "system").permID
}

func (s *Server) addSample(x *sample, user string) *sample {
	now := s.now()
	x.permID = s.nextID()
	x.registrator = user
	x.registered = now
	x.modified = now
	if x.props == nil {
		x.props = make(map[string]string)
	}
	s.samples = append(s.samples, x)
	return x
}

func (s *Server) findSpace(code string) *space {
	for _, sp := range s.spaces {
		if strings.EqualFold(sp.code, code) {
			return sp
		}
	}
	return nil
}

// findSample resolves a perm id or identifier string among live samples.
func (s *Server) findSample(id string) *sample {
	for _, x := range s.samples {
		if x.deletion == 0 && (x.permID == id || strings.EqualFold(x.identifier(), id)) {
			return x
		}
	}
	return nil
}

func (s *Server) liveSamples() []*sample {
	var out []*sample
	for _, x := range s.samples {
		if x.deletion == 0 {
			out = append(out, x)
		}
	}
	return out
}

func (s *Server) children(permID string) []*sample {
	var out []*sample
	for _, x := range s.liveSamples() {
		if slices.Contains(x.parents, permID) {
			out = append(out, x)
		}
	}
	return out
}

// views turns records into DTOs for one reply. Each record maps to one
// DTO, so relations that loop back share pointers.
type views struct {
	s       *Server
	spaces  map[string]*dto.Space
	samples map[string]*dto.Sample
	persons map[string]*dto.Person
}

func newViews(s *Server) *views {
	return &views{
		s:       s,
		spaces:  make(map[string]*dto.Space),
		samples: make(map[string]*dto.Sample),
		persons: make(map[string]*dto.Person),
	}
}

func (v *views) person(user string) *dto.Person {
	if p, ok := v.persons[user]; ok {
		return p
	}
	id := dto.NewPersonPermId(user)
	p := &dto.Person{PermID: &id, UserID: user, Active: true}
	v.persons[user] = p
	return p
}

func (v *views) space(sp *space, fo *dto.FetchOptions) *dto.Space {
	if x, ok := v.spaces[sp.code]; ok {
		return x
	}
	id := dto.NewSpacePermId(sp.code)
	x := &dto.Space{
		PermID:           &id,
		Code:             sp.code,
		Description:      sp.description,
		RegistrationDate: sp.registered,
		ModificationDate: sp.modified,
	}
	v.spaces[sp.code] = x
	if fo.Has("registrator") {
		x.Registrator = v.person(sp.registrator)
	}
	if fo.Has("samples") {
		x.Samples = []*dto.Sample{}
		for _, r := range v.s.liveSamples() {
			if r.space == sp.code {
				x.Samples = append(x.Samples, v.sample(r, fo.Get("samples")))
			}
		}
	}
	return x
}

func (v *views) sample(r *sample, fo *dto.FetchOptions) *dto.Sample {
	if x, ok := v.samples[r.permID]; ok {
		return x
	}
	id := dto.NewSamplePermId(r.permID)
	ident := dto.NewSampleIdentifier(r.identifier())
	x := &dto.Sample{
		PermID:           &id,
		Identifier:       &ident,
		Code:             r.code,
		RegistrationDate: r.registered,
		ModificationDate: r.modified,
	}
	v.samples[r.permID] = x
	if fo.Has("type") {
		typeID := dto.NewEntityTypePermId(r.typeCode, dto.KindSample)
		x.Type = &dto.SampleType{EntityType: dto.EntityType{PermID: &typeID, Code: r.typeCode}}
	}
	if fo.Has("properties") {
		x.Properties = make(map[string]any, len(r.props))
		for k, val := range r.props {
			x.Properties[k] = val
		}
	}
	if fo.Has("registrator") {
		x.Registrator = v.person(r.registrator)
	}
	if fo.Has("space") {
		if sp := v.s.findSpace(r.space); sp != nil {
			x.Space = v.space(sp, fo.Get("space"))
		}
	}
	if fo.Has("parents") {
		x.Parents = []*dto.Sample{}
		for _, p := range r.parents {
			if pr := v.s.findSample(p); pr != nil {
				x.Parents = append(x.Parents, v.sample(pr, fo.Get("parents")))
			}
		}
	}
	if fo.Has("children") {
		x.Children = []*dto.Sample{}
		for _, c := range v.s.children(r.permID) {
			x.Children = append(x.Children, v.sample(c, fo.Get("children")))
		}
	}
	return x
}

// page applies the paging of fo and returns the page with the total count.
func page[T any](items []T, fo *dto.FetchOptions) *dto.SearchResult[T] {
	res := &dto.SearchResult[T]{Objects: items, TotalCount: len(items)}
	if res.Objects == nil {
		res.Objects = []T{}
	}
	if fo == nil || fo.Count <= 0 {
		return res
	}
	from := min(max(fo.From, 0), len(items))
	to := min(from+fo.Count, len(items))
	res.Objects = items[from:to]
	return res
}
