package openbistest

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/endpoint"
)

// dataStoreServer holds the methods of one data store server.
type dataStoreServer struct {
	s    *Server
	code string
}

// open checks the session and returns the store. Callers hold s.mu.
func (d *dataStoreServer) open(token string) (*store, error) {
	if _, err := d.s.session(token); err != nil {
		return nil, err
	}
	st := d.s.store(d.code)
	if st.failure != "" {
		return nil, invalidArgument(st.failure)
	}
	return st, nil
}

func (d *dataStoreServer) SearchFiles(ctx context.Context, p searchParams) (*dto.SearchResult[*dto.DataSetFile], error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := d.open(p.Token)
	if err != nil {
		return nil, err
	}
	var ds *dto.DataStore
	if p.Fetch.Has("dataStore") {
		id := dto.NewDataStorePermId(st.code)
		ds = &dto.DataStore{PermID: &id, Code: st.code, DownloadURL: s.DataStoreURL(st.code)}
	}
	var found []*dto.DataSetFile
	for _, f := range st.files {
		if !matches(p.Criteria, fileObject(f)) {
			continue
		}
		dataSet := dto.NewDataSetPermId(f.DataSet)
		found = append(found, &dto.DataSetFile{
			PermID:        &dto.DataSetFilePermId{DataSetID: dataSet, FilePath: f.Path},
			DataSetPermID: &dataSet,
			DataStore:     ds,
			Path:          f.Path,
			Directory:     f.Directory,
			FileLength:    f.Size,
		})
	}
	return page(found, p.Fetch), nil
}

// CreateDataSets registers data sets whose files are described in the
// creations.
func (d *dataStoreServer) CreateDataSets(ctx context.Context, p struct {
	Token     string                     `json:"sessionToken"`
	Creations []*dto.FullDataSetCreation `json:"creations"`
}) ([]dto.DataSetPermId, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := d.open(p.Token)
	if err != nil {
		return nil, err
	}
	ids := make([]dto.DataSetPermId, len(p.Creations))
	for i, c := range p.Creations {
		if c.Metadata == nil {
			return nil, invalidArgument("Metadata creation cannot be null")
		}
		if c.Metadata.DataStoreID != nil && !strings.EqualFold(c.Metadata.DataStoreID.String(), st.code) {
			return nil, invalidArgument("Data set belongs to data store " + c.Metadata.DataStoreID.String() + ", not " + st.code)
		}
		code := c.Metadata.Code
		if code == "" {
			code = s.nextID()
		}
		for _, fm := range c.FileMetadata {
			st.files = append(st.files, File{DataSet: code, Path: fm.Path, Size: fm.FileLength, Directory: fm.Directory})
		}
		ids[i] = dto.NewDataSetPermId(code)
	}
	return ids, nil
}

// CreateUploadedDataSet turns the files of an upload into a data set.
func (d *dataStoreServer) CreateUploadedDataSet(ctx context.Context, p struct {
	Token    string                       `json:"sessionToken"`
	Creation *dto.UploadedDataSetCreation `json:"newDataSet"`
}) (dto.DataSetPermId, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := d.open(p.Token)
	if err != nil {
		return dto.DataSetPermId{}, err
	}
	if p.Creation == nil {
		return dto.DataSetPermId{}, invalidArgument("Data set creation cannot be null")
	}
	files, ok := st.uploads[p.Creation.UploadID]
	if !ok {
		return dto.DataSetPermId{}, invalidArgument("No files uploaded with upload id " + p.Creation.UploadID)
	}
	delete(st.uploads, p.Creation.UploadID)
	code := s.nextID()
	for _, f := range files {
		f.DataSet = code
		st.files = append(st.files, f)
	}
	return dto.NewDataSetPermId(code), nil
}

type uploadParams struct {
	Store          string              `path:"store"`
	DataSetType    string              `query:"dataSetType"`
	Folder         string              `query:"folderPath"`
	IgnoreFilePath bool                `query:"ignoreFilePath"`
	UploadID       string              `query:"uploadID"`
	Files          []endpoint.FormFile `file:"file" maxLength:""`
}

// requireSession rejects upload requests whose sessionID query parameter is
// not an open session, before the body is read.
func (s *Server) requireSession() endpoint.Processor {
	return endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		s.mu.Lock()
		_, err := s.session(r.URL.Query().Get("sessionID"))
		s.mu.Unlock()
		if err != nil {
			return endpoint.Error(http.StatusUnauthorized, "invalid session", err)
		}
		return next(w, r)
	})
}

// upload stores the files of a multipart form under the upload id.
func (s *Server) upload(w http.ResponseWriter, r *http.Request, p uploadParams) (endpoint.Renderer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.store(p.Store)
	if st == nil {
		return nil, endpoint.Error(http.StatusNotFound, "unknown data store", nil)
	}
	if p.UploadID == "" || p.DataSetType == "" {
		return nil, endpoint.Error(http.StatusBadRequest, "uploadID and dataSetType are required", nil)
	}
	for _, f := range p.Files {
		name := f.Name
		if p.IgnoreFilePath {
			name = path.Base(name)
		}
		st.uploads[p.UploadID] = append(st.uploads[p.UploadID],
			File{Path: path.Join("original", p.Folder, name), Size: int64(len(f.Content))})
	}
	return &endpoint.JSONRenderer{Value: map[string]any{"uploadID": p.UploadID, "files": len(p.Files)}}, nil
}

// Uploads returns the files received for uploadID and not yet registered.
func (s *Server) Uploads(storeCode, uploadID string) []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.store(storeCode); st != nil {
		return append([]File(nil), st.uploads[uploadID]...)
	}
	return nil
}
