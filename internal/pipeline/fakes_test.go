package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/media"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/qc"
)

type fakeBlob struct {
	data []byte
	mime string
}

type fakeBlobs struct {
	mu    sync.Mutex
	blobs map[string]fakeBlob
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: map[string]fakeBlob{}}
}

func (f *fakeBlobs) Put(_ context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = fakeBlob{data: data, mime: contentType}
	return nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[key]
	if !ok {
		return nil, "", media.ErrNotFound
	}
	return b.data, b.mime, nil
}

func (f *fakeBlobs) Exists(_ context.Context, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[key]
	return ok
}

type fakeCatalog struct {
	mu        sync.Mutex
	products  map[string]catalog.ProductMetadata
	generated map[string]catalog.GeneratedImage
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:  map[string]catalog.ProductMetadata{},
		generated: map[string]catalog.GeneratedImage{},
	}
}

func (f *fakeCatalog) SaveProduct(_ context.Context, meta catalog.ProductMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[meta.ID] = meta
	return nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (catalog.ProductMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.products[id]
	if !ok {
		return catalog.ProductMetadata{}, catalog.ErrNotFound
	}
	return meta, nil
}

func (f *fakeCatalog) SetRealizedKey(_ context.Context, id, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	meta.RealizedKey = key
	f.products[id] = meta
	return nil
}

func (f *fakeCatalog) SetBackgroundRef(_ context.Context, id, key, mime string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	meta.BackgroundKey = key
	meta.BackgroundMIME = mime
	f.products[id] = meta
	return nil
}

func (f *fakeCatalog) SaveGenerated(_ context.Context, img catalog.GeneratedImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated[img.ID] = img
	return nil
}

func (f *fakeCatalog) GetGenerated(_ context.Context, id string) (catalog.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.generated[id]
	if !ok {
		return catalog.GeneratedImage{}, catalog.ErrNotFound
	}
	return img, nil
}

func (f *fakeCatalog) Close() {}

// fakeModel returns a distinct payload per call and records every
// instruction it received.
type fakeModel struct {
	mu           sync.Mutex
	calls        int
	err          error
	instructions []string
	partCounts   []int
}

func (f *fakeModel) GenerateImage(_ context.Context, parts []gemini.ImagePart, instruction string) (gemini.ImagePart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return gemini.ImagePart{}, f.err
	}
	f.calls++
	f.instructions = append(f.instructions, instruction)
	f.partCounts = append(f.partCounts, len(parts))
	return gemini.ImagePart{Data: []byte(fmt.Sprintf("img-%d", f.calls)), MIME: "image/png"}, nil
}

func pass() qc.Result {
	return qc.Result{Verdict: &qc.Verdict{Verdict: "pass"}}
}

func fail(issues ...string) qc.Result {
	return qc.Result{Verdict: &qc.Verdict{Verdict: "fail", Issues: issues}}
}

// fakeJudge pops scripted product and identity results in order; once a
// script runs out every further call passes.
type fakeJudge struct {
	mu            sync.Mutex
	product       []qc.Result
	identity      []qc.Result
	productCalls  int
	identityCalls int
	demockupSeen  []bool
}

func (f *fakeJudge) Product(_ context.Context, _, _ gemini.ImagePart, checkDemockup bool) qc.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	f.demockupSeen = append(f.demockupSeen, checkDemockup)
	if len(f.product) == 0 {
		return pass()
	}
	r := f.product[0]
	f.product = f.product[1:]
	return r
}

func (f *fakeJudge) Identity(_ context.Context, _, _ gemini.ImagePart) qc.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identityCalls++
	if len(f.identity) == 0 {
		return pass()
	}
	r := f.identity[0]
	f.identity = f.identity[1:]
	return r
}
