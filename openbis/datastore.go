package openbis

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mnehpets/openbis/codec"
	"github.com/mnehpets/openbis/decycle"
	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/jsonrpc"
)

// DataStoreAPIPath is the data store endpoint below a store's download URL.
const DataStoreAPIPath = "/datastore_server/rmi-data-store-server-v3.json"

// DataStoreFacade talks to the data store servers named by its codes, or to
// all data stores when it has none. The stores are looked up on the
// application server at every call, with the session of the parent Facade.
type DataStoreFacade struct {
	f     *Facade
	codes []string
}

// GetDataStoreFacade returns a facade scoped to the data stores with the
// given codes.
func (f *Facade) GetDataStoreFacade(codes ...string) *DataStoreFacade {
	return &DataStoreFacade{f: f, codes: slices.Clone(codes)}
}

// Codes returns the requested data store codes.
func (d *DataStoreFacade) Codes() []string {
	return slices.Clone(d.codes)
}

// DataStores resolves the facade's codes. The result follows the order of
// the requested codes, or the server's order when no codes were given. It
// fails with *NoDataStoreError when nothing matches.
func (d *DataStoreFacade) DataStores(ctx context.Context) ([]*dto.DataStore, error) {
	return d.resolve(ctx, d.f.token())
}

func (d *DataStoreFacade) resolve(ctx context.Context, token any) ([]*dto.DataStore, error) {
	c := dto.DataStoreSearch().WithOperator(dto.Or)
	for _, code := range d.codes {
		c.WithCode(code)
	}
	res, err := call[*dto.SearchResult[*dto.DataStore]](ctx, d.f, "searchDataStores",
		codec.Scalar("SearchResult[DataStore]"), token, c, dto.DataStoreFetch())
	if err != nil {
		return nil, err
	}
	var stores []*dto.DataStore
	if res != nil {
		stores = slices.Clone(res.Objects)
	}
	if len(stores) == 0 {
		return nil, &NoDataStoreError{Codes: slices.Clone(d.codes)}
	}
	if len(d.codes) > 0 {
		slices.SortStableFunc(stores, func(a, b *dto.DataStore) int {
			return rank(d.codes, a.Code) - rank(d.codes, b.Code)
		})
	}
	return stores, nil
}

func rank(codes []string, code string) int {
	if i := slices.Index(codes, code); i >= 0 {
		return i
	}
	return len(codes)
}

// one resolves the facade to exactly one store.
func (d *DataStoreFacade) one(ctx context.Context, op string, token any) (*dto.DataStore, error) {
	stores, err := d.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(stores) > 1 {
		return nil, &AmbiguousDataStoreError{Op: op, Stores: storeCodes(stores)}
	}
	return stores[0], nil
}

func (d *DataStoreFacade) client(store *dto.DataStore) *jsonrpc.Client {
	return d.f.client.WithURL(DataStoreURL(store))
}

// DataStoreURL returns the JSON-RPC endpoint of store.
func DataStoreURL(store *dto.DataStore) string {
	return strings.TrimSuffix(store.DownloadURL, "/") + DataStoreAPIPath
}

func storeCodes(stores []*dto.DataStore) []string {
	codes := make([]string, len(stores))
	for i, s := range stores {
		codes[i] = s.Code
	}
	return codes
}

// SearchFiles searches every store concurrently. Objects are grouped by
// store in DataStores order, each group in the store's order, and the total
// counts are summed. The first failing store fails the whole search.
func (d *DataStoreFacade) SearchFiles(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.DataSetFile], error) {
	token := d.f.token()
	stores, err := d.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	fo = orDefault(fo, dto.DataSetFileFetch)

	results := make([]*dto.SearchResult[*dto.DataSetFile], len(stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, store := range stores {
		g.Go(func() error {
			res, err := invoke[*dto.SearchResult[*dto.DataSetFile]](gctx, d.client(store), "searchFiles",
				codec.Scalar("SearchResult[DataSetFile]"), token, c, fo)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &dto.SearchResult[*dto.DataSetFile]{Objects: []*dto.DataSetFile{}}
	for _, res := range results {
		if res == nil {
			continue
		}
		merged.Objects = append(merged.Objects, res.Objects...)
		merged.TotalCount += res.TotalCount
	}
	d.f.logger.DebugContext(ctx, "openbis searchFiles", "stores", storeCodes(stores), "total", merged.TotalCount)
	return merged, nil
}

// CreateDataSets registers data sets whose files already sit in a store.
// With one store in scope every creation goes there; otherwise each is
// routed by its DataStoreID, and a creation without one fails with
// *AmbiguousDataStoreError before anything is sent. The returned ids follow
// the order of creations.
func (d *DataStoreFacade) CreateDataSets(ctx context.Context, creations ...*dto.FullDataSetCreation) ([]dto.DataSetPermId, error) {
	token := d.f.token()
	stores, err := d.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]*dto.DataStore, len(stores))
	for _, s := range stores {
		byCode[s.Code] = s
	}
	type batch struct {
		store     *dto.DataStore
		creations []*dto.FullDataSetCreation
		index     []int
	}
	var order []string
	batches := make(map[string]*batch)
	for i, c := range creations {
		store := stores[0]
		if len(stores) > 1 {
			if c.Metadata == nil || c.Metadata.DataStoreID == nil {
				return nil, &AmbiguousDataStoreError{Op: "createDataSets", Stores: storeCodes(stores)}
			}
			code := c.Metadata.DataStoreID.String()
			s, ok := byCode[code]
			if !ok {
				return nil, &UnknownDataStoreError{Code: code, Stores: storeCodes(stores)}
			}
			store = s
		}
		b, ok := batches[store.Code]
		if !ok {
			b = &batch{store: store}
			batches[store.Code] = b
			order = append(order, store.Code)
		}
		b.creations = append(b.creations, c)
		b.index = append(b.index, i)
	}

	ids := make([]dto.DataSetPermId, len(creations))
	g, gctx := errgroup.WithContext(ctx)
	for _, code := range order {
		b := batches[code]
		g.Go(func() error {
			got, err := invoke[[]dto.DataSetPermId](gctx, d.client(b.store), "createDataSets",
				codec.ListOf(codec.Scalar("DataSetPermId")), token, b.creations)
			if err != nil {
				return err
			}
			if len(got) != len(b.index) {
				return &codec.DecodeError{Path: decycle.Root, Name: "List<DataSetPermId>",
					Reason: fmt.Sprintf("data store %q returned %d ids for %d creations", b.store.Code, len(got), len(b.index))}
			}
			for j, id := range got {
				ids[b.index[j]] = id
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateUploadedDataSet registers the files of a finished upload as a data
// set. Exactly one store must be in scope.
func (d *DataStoreFacade) CreateUploadedDataSet(ctx context.Context, creation *dto.UploadedDataSetCreation) (dto.DataSetPermId, error) {
	token := d.f.token()
	store, err := d.one(ctx, "createUploadedDataSet", token)
	if err != nil {
		return dto.DataSetPermId{}, err
	}
	return invoke[dto.DataSetPermId](ctx, d.client(store), "createUploadedDataSet",
		codec.Scalar("DataSetPermId"), token, creation)
}
