package sync

import (
	"context"

	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/objects"
)

// DialCloner dials a remote engine per connection string and clones
// into a fixed local Peer, satisfying splitfile.Cloner so a Splitfile's
// `FROM <conn_string> <repo> IMPORT ...` form has something to resolve
// against. Each call dials and closes its own connection, since a
// Splitfile may reference several distinct remotes across its script.
type DialCloner struct {
	Local       *Peer
	DownloadAll bool
}

// Clone implements splitfile.Cloner.
func (d *DialCloner) Clone(ctx context.Context, connString string, repo catalog.Repository) error {
	remoteEngine, err := engine.Open(ctx, connString)
	if err != nil {
		return err
	}
	defer remoteEngine.Close()

	remoteCatalog, err := catalog.NewStore(ctx, remoteEngine)
	if err != nil {
		return err
	}
	remoteObjects, err := objects.NewStore(ctx, remoteEngine)
	if err != nil {
		return err
	}

	syncer := &Syncer{
		Local:  d.Local,
		Remote: &Peer{Engine: remoteEngine, Catalog: remoteCatalog, Objects: remoteObjects},
	}
	return syncer.Clone(ctx, repo, d.DownloadAll)
}
