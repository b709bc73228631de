package mount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxz/splitgraph/internal/engine"
)

type fakeHandler struct {
	mounted   map[string]bool
	mountErr  error
	unmountErr error
}

func (f *fakeHandler) Mount(ctx context.Context, eng engine.Engine, schema, conn string, options map[string]string) error {
	if f.mountErr != nil {
		return f.mountErr
	}
	f.mounted[schema] = true
	return nil
}

func (f *fakeHandler) Unmount(ctx context.Context, eng engine.Engine, schema string) error {
	if f.unmountErr != nil {
		return f.unmountErr
	}
	delete(f.mounted, schema)
	return nil
}

func TestMountAndUnmountRoundTrip(t *testing.T) {
	fh := &fakeHandler{mounted: map[string]bool{}}
	Register("fake", fh)

	r := NewRegistry()
	schema, err := r.Mount(context.Background(), nil, "fake", "foreign_schema", "conn", nil)
	require.NoError(t, err)
	assert.Equal(t, "foreign_schema", schema)
	assert.True(t, fh.mounted["foreign_schema"])
	assert.True(t, r.IsMounted("foreign_schema"))

	require.NoError(t, r.Unmount(context.Background(), nil, "foreign_schema"))
	assert.False(t, fh.mounted["foreign_schema"])
	assert.False(t, r.IsMounted("foreign_schema"))
}

func TestMountUnknownHandler(t *testing.T) {
	r := NewRegistry()
	_, err := r.Mount(context.Background(), nil, "does-not-exist", "s", "c", nil)
	assert.Error(t, err)
}

func TestUnmountNotMounted(t *testing.T) {
	r := NewRegistry()
	err := r.Unmount(context.Background(), nil, "never_mounted")
	assert.Error(t, err)
}

func TestFilecsvRegistered(t *testing.T) {
	_, ok := Lookup("filecsv")
	assert.True(t, ok)
}
