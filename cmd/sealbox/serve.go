package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/blob/badgerblob"
	"go.dedis.ch/sealbox/blob/kvblob"
	"go.dedis.ch/sealbox/blob/walrus"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/core/store/kv"
	"go.dedis.ch/sealbox/httpsrv"
	"go.dedis.ch/sealbox/ledger/jsonrpc"
	"go.dedis.ch/sealbox/ledger/local"
	"go.dedis.ch/sealbox/seal/keyserver"
	"golang.org/x/xerrors"
)

const (
	// RPCPath is the path of the JSON-RPC endpoint of the ledger.
	RPCPath = "/rpc"

	// MetricsPath is the path of the Prometheus endpoint.
	MetricsPath = "/metrics"

	boltStore   = "bolt"
	badgerStore = "badger"
)

// serveInit is the initializer of the serve command.
//
// - implements cli.Initializer
type serveInit struct{}

// SetCommands implements cli.Initializer.
func (serveInit) SetCommands(builder cli.Builder) {
	a := newAction()

	cmd := builder.SetCommand("serve")
	cmd.SetDescription("start a development node hosting the ledger, the blob " +
		"store and the key servers")
	cmd.SetFlags(
		cli.StringFlag{
			Name:    "listen",
			Usage:   "listening address of the node, the configured one if empty",
			EnvVars: []string{"SEALBOX_LISTEN"},
		},
		cli.StringFlag{
			Name:  "datadir",
			Usage: "folder of the databases, the configured one if empty",
		},
		cli.StringFlag{
			Name:  "blob-store",
			Usage: "backend of the blob store: bolt or badger",
			Value: boltStore,
		},
		cli.IntFlag{
			Name:  "committee-size",
			Usage: "number of key servers generated when there is no committee file",
			Value: 3,
		},
	)
	cmd.SetAction(a.serve)
}

func (a action) serve(flags cli.Flags) error {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return err
	}

	pkg, err := packageID(cfg)
	if err != nil {
		return err
	}

	settings := nodeSettings{
		Listen:        cfg.Serve.Listen,
		DataDir:       cfg.Serve.DataDir,
		BlobStore:     flags.String("blob-store"),
		Committee:     cfg.Seal.Committee,
		CommitteeSize: flags.Int("committee-size"),
		Threshold:     cfg.Seal.Threshold,
		PackageID:     pkg,
	}

	if flags.String("listen") != "" {
		settings.Listen = flags.String("listen")
	}

	if flags.Path("datadir") != "" {
		settings.DataDir = flags.Path("datadir")
	}

	n, err := startNode(settings)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Node is listening at %s with %d key servers\n",
		n.URL(), len(n.committee.Members))

	a.wait()

	return n.Stop()
}

// waitSignal blocks until the process is interrupted.
func waitSignal() {
	sigs := make(chan os.Signal, 1)

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	<-sigs
}

type nodeSettings struct {
	Listen        string
	DataDir       string
	BlobStore     string
	Committee     string
	CommitteeSize int
	Threshold     int
	PackageID     []byte
}

// node is a development network in a single process. The ledger, the blob
// store and the key servers share the same HTTP host.
type node struct {
	srv       *httpsrv.Server
	db        kv.DB
	blobs     blob.Store
	ledger    *local.Ledger
	committee keyserver.Committee
	logger    zerolog.Logger
}

func startNode(settings nodeSettings) (*node, error) {
	err := os.MkdirAll(settings.DataDir, 0700)
	if err != nil {
		return nil, xerrors.Errorf("failed to create data folder: %v", err)
	}

	db, err := kv.New(filepath.Join(settings.DataDir, "ledger.db"))
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %v", err)
	}

	n := &node{
		srv:    httpsrv.New(settings.Listen),
		db:     db,
		ledger: local.NewLedger(db, settings.PackageID),
		logger: sealbox.Logger.With().Str("role", "node").Logger(),
	}

	switch settings.BlobStore {
	case boltStore, "":
		store := kvblob.NewStore(db)

		purged, err := store.Purge(context.Background())
		if err != nil {
			n.close()
			return nil, err
		}

		n.logger.Info().Int("count", purged).Msg("expired blobs purged")

		n.blobs = store
	case badgerStore:
		store, err := badgerblob.NewStore(filepath.Join(settings.DataDir, "blobs"))
		if err != nil {
			n.close()
			return nil, err
		}

		n.blobs = store
	default:
		n.close()
		return nil, xerrors.Errorf("unknown blob store '%s'", settings.BlobStore)
	}

	err = n.srv.Start()
	if err != nil {
		n.close()
		return nil, err
	}

	// The committee is generated once the server is bound so that the URLs of
	// the members use the actual port.
	n.committee, err = n.loadCommittee(settings)
	if err != nil {
		n.Stop()
		return nil, err
	}

	err = n.mount()
	if err != nil {
		n.Stop()
		return nil, err
	}

	return n, nil
}

func (n *node) loadCommittee(settings nodeSettings) (keyserver.Committee, error) {
	_, err := os.Stat(settings.Committee)
	if err == nil {
		return keyserver.LoadCommittee(settings.Committee)
	}

	committee, err := writeCommittee(settings.Committee, settings.CommitteeSize,
		settings.Threshold, n.srv.URL())
	if err != nil {
		return committee, xerrors.Errorf("failed to create committee: %v", err)
	}

	n.logger.Info().
		Str("path", settings.Committee).
		Int("size", len(committee.Members)).
		Msg("committee created")

	return committee, nil
}

func (n *node) mount() error {
	n.srv.Handle(RPCPath, jsonrpc.NewServer(n.ledger))

	blobs := walrus.NewHandler(n.blobs)
	n.srv.Handle(walrus.BlobsPath, blobs)
	n.srv.Handle(walrus.BlobsPath+"/", blobs)

	for _, m := range n.committee.Members {
		key, err := m.GetKey()
		if err != nil {
			return xerrors.Errorf("failed to read key: %v", err)
		}

		ks := keyserver.NewServer(m.ID, key, n.ledger.PackageID(), n.ledger)

		prefix := "/keyservers/" + m.ID
		n.srv.Handle(prefix+"/", http.StripPrefix(prefix, keyserver.NewHandler(ks)))
	}

	registry := prometheus.NewRegistry()

	for _, c := range sealbox.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			n.logger.Warn().Err(err).Msg("failed to register collector")
		}
	}

	n.srv.Handle(MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return nil
}

// URL returns the base URL of the node.
func (n *node) URL() string {
	return n.srv.URL()
}

// Stop stops the server and closes the databases.
func (n *node) Stop() error {
	err := n.srv.Stop()
	if err != nil {
		return err
	}

	return n.close()
}

func (n *node) close() error {
	closer, ok := n.blobs.(*badgerblob.Store)
	if ok {
		err := closer.Close()
		if err != nil {
			return xerrors.Errorf("failed to close blob store: %v", err)
		}
	}

	err := n.db.Close()
	if err != nil {
		return xerrors.Errorf("failed to close database: %v", err)
	}

	return nil
}
