package openbistest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mnehpets/openbis/dto"
)

// appServer holds the application server methods. Each method name is the
// openBIS method name with a capital first letter.
type appServer struct {
	s *Server
}

type tokenParams struct {
	Token string `json:"sessionToken"`
}

type searchParams struct {
	Token    string            `json:"sessionToken"`
	Criteria *dto.Criteria     `json:"criteria"`
	Fetch    *dto.FetchOptions `json:"fetchOptions"`
}

type getParams struct {
	Token string            `json:"sessionToken"`
	IDs   []dto.ObjectID    `json:"ids"`
	Fetch *dto.FetchOptions `json:"fetchOptions"`
}

type deleteParams struct {
	Token   string               `json:"sessionToken"`
	IDs     []dto.ObjectID       `json:"ids"`
	Options *dto.DeletionOptions `json:"options"`
}

func (a *appServer) Login(ctx context.Context, p struct {
	User     string `json:"userId"`
	Password string `json:"password"`
}) (any, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[p.User]; !ok || pw != p.Password {
		// openBIS answers a failed login with null, not an error.
		return nil, nil
	}
	return s.openSession(p.User), nil
}

func (a *appServer) LoginAs(ctx context.Context, p struct {
	User     string `json:"userId"`
	Password string `json:"password"`
	AsUser   string `json:"asUserId"`
}) (any, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[p.User]; !ok || pw != p.Password {
		return nil, nil
	}
	if !s.admins[p.User] {
		return nil, invalidArgument("User '" + p.User + "' is not an instance admin")
	}
	if _, ok := s.users[p.AsUser]; !ok {
		return nil, invalidArgument("Unknown user '" + p.AsUser + "'")
	}
	return s.openSession(p.AsUser), nil
}

func (a *appServer) LoginAsAnonymousUser(ctx context.Context, _ struct{}) (any, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anonymous == "" {
		return nil, invalidArgument("Anonymous login is disabled")
	}
	return s.openSession(s.anonymous), nil
}

func (s *Server) openSession(user string) string {
	token := s.tokenFunc(user)
	s.sessions[token] = user
	return token
}

// Logout accepts unknown and null tokens, like openBIS.
func (a *appServer) Logout(ctx context.Context, p tokenParams) (any, error) {
	a.s.Expire(p.Token)
	return nil, nil
}

func (a *appServer) IsSessionActive(ctx context.Context, p tokenParams) (bool, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[p.Token]
	return ok, nil
}

func (a *appServer) GetSessionInformation(ctx context.Context, p tokenParams) (*dto.SessionInformation, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := s.session(p.Token)
	if err != nil {
		return nil, err
	}
	person := newViews(s).person(user)
	return &dto.SessionInformation{
		UserName:      user,
		SessionToken:  p.Token,
		Person:        person,
		CreatorPerson: person,
	}, nil
}

func (a *appServer) GetServerInformation(ctx context.Context, p tokenParams) (map[string]string, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	info := make(map[string]string, len(s.serverInfo))
	for k, v := range s.serverInfo {
		info[k] = v
	}
	return info, nil
}

func (a *appServer) CreatePermIdStrings(ctx context.Context, p struct {
	Token string `json:"sessionToken"`
	Count int    `json:"count"`
}) ([]string, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	ids := make([]string, p.Count)
	for i := range ids {
		ids[i] = s.nextID()
	}
	return ids, nil
}

func (a *appServer) CreateCodes(ctx context.Context, p struct {
	Token  string         `json:"sessionToken"`
	Prefix string         `json:"prefix"`
	Kind   dto.EntityKind `json:"entityKind"`
	Count  int            `json:"count"`
}) ([]string, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	codes := make([]string, p.Count)
	for i := range codes {
		s.seq++
		codes[i] = fmt.Sprintf("%s%d", p.Prefix, s.seq)
	}
	return codes, nil
}

// Spaces.

func (a *appServer) CreateSpaces(ctx context.Context, p struct {
	Token     string               `json:"sessionToken"`
	Creations []*dto.SpaceCreation `json:"creations"`
}) ([]dto.SpacePermId, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := s.session(p.Token)
	if err != nil {
		return nil, err
	}
	return s.createSpaces(user, p.Creations)
}

func (s *Server) createSpaces(user string, creations []*dto.SpaceCreation) ([]dto.SpacePermId, error) {
	for _, c := range creations {
		if c.Code == "" {
			return nil, invalidArgument("Code cannot be empty")
		}
		if s.findSpace(c.Code) != nil {
			return nil, invalidArgument("Space already exists: " + strings.ToUpper(c.Code))
		}
	}
	ids := make([]dto.SpacePermId, len(creations))
	for i, c := range creations {
		ids[i] = dto.NewSpacePermId(s.addSpace(c.Code, c.Description, user).code)
	}
	return ids, nil
}

func (a *appServer) UpdateSpaces(ctx context.Context, p struct {
	Token   string             `json:"sessionToken"`
	Updates []*dto.SpaceUpdate `json:"updates"`
}) (any, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	for _, u := range p.Updates {
		sp := s.spaceByID(u.SpaceID)
		if sp == nil {
			return nil, invalidArgument(fmt.Sprintf("Object with SpacePermId = [%v] has not been found.", u.SpaceID))
		}
		if u.Description.Modified {
			sp.description = u.Description.Value
			sp.modified = s.now()
		}
	}
	return nil, nil
}

func (a *appServer) DeleteSpaces(ctx context.Context, p deleteParams) (any, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	return nil, s.deleteSpaces(p.IDs)
}

func (s *Server) deleteSpaces(ids []dto.ObjectID) error {
	for _, id := range ids {
		sp := s.spaceByID(id)
		if sp == nil {
			continue
		}
		for _, x := range s.liveSamples() {
			if x.space == sp.code {
				return invalidArgument("Space '" + sp.code + "' is being used")
			}
		}
		s.spaces = slices.DeleteFunc(s.spaces, func(o *space) bool { return o == sp })
	}
	return nil
}

func (a *appServer) GetSpaces(ctx context.Context, p getParams) (map[string]*dto.Space, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	v := newViews(s)
	out := make(map[string]*dto.Space)
	for _, id := range p.IDs {
		if sp := s.spaceByID(id); sp != nil {
			out[id.String()] = v.space(sp, p.Fetch)
		}
	}
	return out, nil
}

func (a *appServer) SearchSpaces(ctx context.Context, p searchParams) (*dto.SearchResult[*dto.Space], error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	v := newViews(s)
	var found []*dto.Space
	for _, sp := range s.spaces {
		if matches(p.Criteria, spaceObject(sp)) {
			found = append(found, v.space(sp, p.Fetch))
		}
	}
	return page(found, p.Fetch), nil
}

func (s *Server) spaceByID(id dto.ObjectID) *space {
	if id == nil {
		return nil
	}
	return s.findSpace(id.String())
}

// Samples.

func (a *appServer) CreateSamples(ctx context.Context, p struct {
	Token     string                `json:"sessionToken"`
	Creations []*dto.SampleCreation `json:"creations"`
}) ([]dto.SamplePermId, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := s.session(p.Token)
	if err != nil {
		return nil, err
	}
	return s.createSamples(user, p.Creations)
}

func (s *Server) createSamples(user string, creations []*dto.SampleCreation) ([]dto.SamplePermId, error) {
	records := make([]*sample, len(creations))
	for i, c := range creations {
		if c.SpaceID == nil || s.spaceByID(c.SpaceID) == nil {
			return nil, invalidArgument(fmt.Sprintf("Space %v has not been found", c.SpaceID))
		}
		code := strings.ToUpper(c.Code)
		if code == "" {
			if !c.AutoGeneratedCode {
				return nil, invalidArgument("Code cannot be empty for a non auto generated code")
			}
			s.seq++
			code = fmt.Sprintf("S%d", s.seq)
		}
		x := &sample{code: code, typeCode: "UNKNOWN", space: s.spaceByID(c.SpaceID).code, props: c.Properties}
		if c.TypeID != nil {
			x.typeCode = strings.ToUpper(c.TypeID.String())
		}
		if s.findSample(x.identifier()) != nil {
			return nil, invalidArgument("Sample already exists: " + x.identifier())
		}
		for _, pid := range c.ParentIDs {
			parent := s.findSample(pid.String())
			if parent == nil {
				return nil, invalidArgument(fmt.Sprintf("Sample %v has not been found", pid))
			}
			x.parents = append(x.parents, parent.permID)
		}
		records[i] = x
	}
	ids := make([]dto.SamplePermId, len(records))
	for i, x := range records {
		ids[i] = dto.NewSamplePermId(s.addSample(x, user).permID)
	}
	return ids, nil
}

func (a *appServer) UpdateSamples(ctx context.Context, p struct {
	Token   string              `json:"sessionToken"`
	Updates []*dto.SampleUpdate `json:"updates"`
}) (any, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	return nil, s.updateSamples(p.Updates)
}

func (s *Server) updateSamples(updates []*dto.SampleUpdate) error {
	for _, u := range updates {
		x := s.sampleByID(u.SampleID)
		if x == nil {
			return invalidArgument(fmt.Sprintf("Object with SamplePermId = [%v] has not been found.", u.SampleID))
		}
		if u.SpaceID.Modified {
			sp := s.spaceByID(u.SpaceID.Value)
			if sp == nil {
				return invalidArgument(fmt.Sprintf("Space %v has not been found", u.SpaceID.Value))
			}
			x.space = sp.code
		}
		for k, v := range u.Properties {
			x.props[k] = v
		}
		if u.ParentIDs != nil {
			current := make([]dto.ObjectID, len(x.parents))
			for i, pid := range x.parents {
				current[i] = dto.NewSamplePermId(pid)
			}
			x.parents = x.parents[:0]
			for _, id := range u.ParentIDs.Apply(current) {
				if parent := s.findSample(id.String()); parent != nil {
					x.parents = append(x.parents, parent.permID)
				}
			}
		}
		x.modified = s.now()
	}
	return nil
}

// DeleteSamples moves samples to the trash can.
func (a *appServer) DeleteSamples(ctx context.Context, p deleteParams) (dto.ObjectID, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	return s.deleteSamples(p.IDs, p.Options), nil
}

func (s *Server) deleteSamples(ids []dto.ObjectID, opts *dto.DeletionOptions) dto.ObjectID {
	d := &deletion{id: int64(len(s.deletions) + 1)}
	if opts != nil {
		d.reason = opts.Reason
	}
	for _, id := range ids {
		if x := s.sampleByID(id); x != nil {
			x.deletion = d.id
			d.samples = append(d.samples, x.permID)
		}
	}
	s.deletions = append(s.deletions, d)
	return dto.DeletionTechId{TechID: d.id}
}

func (a *appServer) GetSamples(ctx context.Context, p getParams) (map[string]*dto.Sample, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	v := newViews(s)
	out := make(map[string]*dto.Sample)
	for _, id := range p.IDs {
		if x := s.sampleByID(id); x != nil {
			out[id.String()] = v.sample(x, p.Fetch)
		}
	}
	return out, nil
}

func (a *appServer) SearchSamples(ctx context.Context, p searchParams) (*dto.SearchResult[*dto.Sample], error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	return s.searchSamples(p.Criteria, p.Fetch), nil
}

func (s *Server) searchSamples(c *dto.Criteria, fo *dto.FetchOptions) *dto.SearchResult[*dto.Sample] {
	v := newViews(s)
	var found []*dto.Sample
	for _, x := range s.liveSamples() {
		if matches(c, s.sampleObject(x)) {
			found = append(found, v.sample(x, fo))
		}
	}
	return page(found, fo)
}

func (s *Server) sampleByID(id dto.ObjectID) *sample {
	if id == nil {
		return nil
	}
	return s.findSample(id.String())
}

// Trash can.

func (a *appServer) SearchDeletions(ctx context.Context, p searchParams) (*dto.SearchResult[*dto.Deletion], error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	var found []*dto.Deletion
	for _, d := range s.deletions {
		del := &dto.Deletion{ID: &dto.DeletionTechId{TechID: d.id}, Reason: d.reason}
		if p.Fetch.Has("deletedObjects") {
			for _, permID := range d.samples {
				del.DeletedObjects = append(del.DeletedObjects, dto.NewSamplePermId(permID))
			}
		}
		found = append(found, del)
	}
	return page(found, p.Fetch), nil
}

type deletionIDs struct {
	Token string         `json:"sessionToken"`
	IDs   []dto.ObjectID `json:"deletionIds"`
}

func (a *appServer) ConfirmDeletions(ctx context.Context, p deletionIDs) (any, error) {
	return nil, a.s.closeDeletions(p, true)
}

func (a *appServer) RevertDeletions(ctx context.Context, p deletionIDs) (any, error) {
	return nil, a.s.closeDeletions(p, false)
}

func (s *Server) closeDeletions(p deletionIDs, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return err
	}
	for _, id := range p.IDs {
		d := s.deletionByID(id)
		if d == nil {
			return invalidArgument(fmt.Sprintf("Deletion %v has not been found", id))
		}
		if confirm {
			s.samples = slices.DeleteFunc(s.samples, func(x *sample) bool { return x.deletion == d.id })
		} else {
			for _, x := range s.samples {
				if x.deletion == d.id {
					x.deletion = 0
				}
			}
		}
		s.deletions = slices.DeleteFunc(s.deletions, func(o *deletion) bool { return o == d })
	}
	return nil
}

func (s *Server) deletionByID(id dto.ObjectID) *deletion {
	if id == nil {
		return nil
	}
	for _, d := range s.deletions {
		if id.String() == strconv.FormatInt(d.id, 10) {
			return d
		}
	}
	return nil
}

// Data stores.

func (a *appServer) SearchDataStores(ctx context.Context, p searchParams) (*dto.SearchResult[*dto.DataStore], error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	var found []*dto.DataStore
	for _, st := range s.stores {
		if matches(p.Criteria, storeObject(st)) {
			id := dto.NewDataStorePermId(st.code)
			found = append(found, &dto.DataStore{
				PermID:      &id,
				Code:        st.code,
				DownloadURL: s.DataStoreURL(st.code),
				RemoteURL:   s.DataStoreURL(st.code),
			})
		}
	}
	return page(found, p.Fetch), nil
}

// Rights, operations and services.

func (a *appServer) GetRights(ctx context.Context, p getParams) (map[string]*dto.Rights, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	out := make(map[string]*dto.Rights, len(p.IDs))
	for _, id := range p.IDs {
		out[id.String()] = &dto.Rights{Rights: append([]dto.Right{}, s.rights[id.String()]...)}
	}
	return out, nil
}

// ExecuteOperations runs space and sample operations in order. A failing
// operation fails the whole call; earlier operations are not rolled back.
func (a *appServer) ExecuteOperations(ctx context.Context, p struct {
	Token      string                         `json:"sessionToken"`
	Operations []*dto.Operation               `json:"operations"`
	Options    *dto.OperationExecutionOptions `json:"options"`
}) (*dto.OperationExecutionResults, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := s.session(p.Token)
	if err != nil {
		return nil, err
	}
	results := &dto.OperationExecutionResults{}
	for i, op := range p.Operations {
		res, err := s.execute(user, op)
		if err != nil {
			return nil, invalidArgument(fmt.Sprintf("Operation %d (%s) failed: %v", i, short(op.Type), err))
		}
		results.Results = append(results.Results, res)
	}
	if p.Options.Asynchronous() {
		return &dto.OperationExecutionResults{ExecutionID: &dto.OperationExecutionPermId{PermID: s.nextID()}}, nil
	}
	return results, nil
}

func (s *Server) execute(user string, op *dto.Operation) (*dto.OperationResult, error) {
	res := &dto.OperationResult{Type: op.Type + "Result"}
	switch short(op.Type) {
	case "CreateSpacesOperation":
		ids, err := s.createSpaces(user, creations[*dto.SpaceCreation](op))
		for _, id := range ids {
			res.ObjectIDs = append(res.ObjectIDs, id)
		}
		return res, err
	case "CreateSamplesOperation":
		ids, err := s.createSamples(user, creations[*dto.SampleCreation](op))
		for _, id := range ids {
			res.ObjectIDs = append(res.ObjectIDs, id)
		}
		return res, err
	case "UpdateSamplesOperation":
		return res, s.updateSamples(creations[*dto.SampleUpdate](op))
	case "DeleteSpacesOperation":
		return res, s.deleteSpaces(op.ObjectIDs)
	case "DeleteSamplesOperation":
		res.DeletionID = s.deleteSamples(op.ObjectIDs, op.Options)
		return res, nil
	}
	return nil, fmt.Errorf("unsupported operation %s", op.Type)
}

// creations returns the creations, or updates, of op that have type T.
func creations[T any](op *dto.Operation) []T {
	var out []T
	for _, c := range slices.Concat(op.Creations, op.Updates) {
		if t, ok := c.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// ExecuteCustomASService echoes the service code and parameters.
func (a *appServer) ExecuteCustomASService(ctx context.Context, p struct {
	Token   string                               `json:"sessionToken"`
	Service dto.ObjectID                         `json:"serviceId"`
	Options *dto.CustomASServiceExecutionOptions `json:"options"`
}) (any, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session(p.Token); err != nil {
		return nil, err
	}
	reply := map[string]any{"parameters": map[string]any{}}
	if p.Service != nil {
		reply["service"] = p.Service.String()
	}
	if p.Options != nil && p.Options.Parameters != nil {
		reply["parameters"] = p.Options.Parameters
	}
	return reply, nil
}
