package openbis

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/jsonrpc"
)

// UploadPath is the file upload servlet below a store's download URL.
const UploadPath = "/datastore_server/store_share_file_upload"

// DataSetUpload is a pending upload to one data store. Files are sent to
// URL, then registered with CreateUploadedDataSet using Creation.
type DataSetUpload struct {
	ID          string
	DataSetType string
	DataStore   *dto.DataStore
	Token       string

	http *http.Client
}

// CreateDataSetUpload starts an upload of a data set of the given type.
// Exactly one store must be in scope.
func (d *DataStoreFacade) CreateDataSetUpload(ctx context.Context, dataSetType string) (*DataSetUpload, error) {
	token := d.f.token()
	store, err := d.one(ctx, "createDataSetUpload", token)
	if err != nil {
		return nil, err
	}
	tok, _ := token.(string)
	return &DataSetUpload{
		ID:          uuid.NewString(),
		DataSetType: dataSetType,
		DataStore:   store,
		Token:       tok,
		http:        d.f.http,
	}, nil
}

// URL returns the upload URL for files placed under folder. With
// ignoreFilePath set the store drops the client-side directory of each file.
func (u *DataSetUpload) URL(folder string, ignoreFilePath bool) string {
	q := url.Values{}
	q.Set("dataSetType", u.DataSetType)
	q.Set("folderPath", folder)
	q.Set("ignoreFilePath", strconv.FormatBool(ignoreFilePath))
	q.Set("uploadID", u.ID)
	q.Set("sessionID", u.Token)
	return strings.TrimSuffix(u.DataStore.DownloadURL, "/") + UploadPath + "?" + q.Encode()
}

// Upload sends one file as a multipart form to URL(folder, true).
func (u *DataSetUpload) Upload(ctx context.Context, folder, name string, r io.Reader) error {
	target := u.URL(folder, true)
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		pr.Close()
		return &jsonrpc.TransportError{URL: target, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return &jsonrpc.TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &jsonrpc.TransportError{URL: target, Status: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Creation returns a creation registering the uploaded files as a data set
// of the upload's type. Callers add the owner and properties.
func (u *DataSetUpload) Creation() *dto.UploadedDataSetCreation {
	return &dto.UploadedDataSetCreation{
		TypeID:   dto.NewEntityTypePermId(u.DataSetType, dto.KindDataSet),
		UploadID: u.ID,
	}
}

func (u *DataSetUpload) String() string {
	return fmt.Sprintf("upload %s of %s to %s", u.ID, u.DataSetType, u.DataStore.Code)
}
