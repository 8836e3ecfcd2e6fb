// idpropctl inspects and repairs the id state of a saved scene document:
// list ids per collection, report collisions and broken references, resolve
// a single id, or serve the local inspector feed over a loaded document.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"idprop.dev/internal/config"
	"idprop.dev/internal/idprop"
	"idprop.dev/internal/inspectproto"
	"idprop.dev/internal/persistence/indexdb"
	persistlog "idprop.dev/internal/persistence/log"
	"idprop.dev/internal/persistence/snapshot"
	"idprop.dev/internal/scene"
	"idprop.dev/internal/transport/observer"
)

func main() {
	var (
		docPath    = flag.String("doc", "", "path to a document snapshot (.json.zst)")
		configPath = flag.String("config", "./configs/idprop.yaml", "path to idprop.yaml")
		noAudit    = flag.Bool("no_audit", false, "disable the audit trail and index sinks")

		check    = flag.Bool("check", false, "report id collisions repaired on load and broken references")
		listKind = flag.String("list", "", "list blocks and ids of one collection kind")
		resolve  = flag.String("resolve", "", "resolve one reference, as <kind>:<id>")
		serve    = flag.String("serve", "", "serve the inspector feed on this address (e.g. 127.0.0.1:8091)")
		savePath = flag.String("save", "", "re-save the (repaired) document to this path")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[idpropctl] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", *configPath)
		cfg = config.Default()
	}

	if *docPath == "" {
		logger.Fatalf("missing -doc")
	}
	snap, err := snapshot.Load(*docPath)
	if err != nil {
		logger.Fatalf("read document: %v", err)
	}

	// Sinks first, so load-time collision repairs land in the trail.
	var sinks []idprop.EventSink
	var idx *indexdb.SQLiteIndex
	var obs *observer.Server

	if cfg.Audit.Enabled && !*noAudit {
		trail := persistlog.NewEventTrail(cfg.Audit.Dir)
		defer trail.Close()
		sinks = append(sinks, trail)
		if cfg.Audit.IndexDB != "" {
			idx, err = indexdb.OpenSQLite(cfg.Audit.IndexDB)
			if err != nil {
				logger.Fatalf("open index db: %v", err)
			}
			defer idx.Close()
			sinks = append(sinks, idx)
		}
	}

	doc := scene.NewDocument()
	if *serve != "" {
		obs = observer.NewServer(doc, snap.Header.DocumentID, logger)
		sinks = append(sinks, obs)
	}

	sys := idprop.New(doc, idprop.Config{
		LibIDSpace:    cfg.LibIDSpace,
		ScanSoftLimit: cfg.ScanSoftLimit,
		Sink:          idprop.NewSinkMux(sinks...),
		Logger:        logger,
	})
	if err := sys.Attach(); err != nil {
		logger.Fatalf("attach: %v", err)
	}

	// RestoreInto fires the load handlers, which runs the reload rebuild and
	// repairs any duplicate ids the snapshot carried.
	if err := snapshot.RestoreInto(doc, snap); err != nil {
		logger.Fatalf("restore document: %v", err)
	}
	logger.Printf("loaded %s (document_id=%s)", *docPath, snap.Header.DocumentID)

	switch {
	case *check:
		runCheck(doc, sys, logger)
	case *listKind != "":
		runList(doc, sys, scene.Kind(*listKind), logger)
	case *resolve != "":
		kind, id, err := parseRef(*resolve)
		if err != nil {
			logger.Fatalf("bad -resolve: %v", err)
		}
		name := sys.Resolve(kind, id)
		if name == idprop.NotFound {
			fmt.Printf("%s:%d -> <broken>\n", kind, id)
		} else {
			fmt.Printf("%s:%d -> %q\n", kind, id, name)
		}
	case *serve != "":
		runServe(*serve, obs, logger)
	default:
		logger.Fatalf("nothing to do: pass -check, -list, -resolve or -serve")
	}

	if *savePath != "" {
		out := snapshot.Capture(doc, snap.Header.DocumentID)
		if err := snapshot.Save(*savePath, out); err != nil {
			logger.Fatalf("save document: %v", err)
		}
		if idx != nil {
			idx.RecordSnapshot(indexdb.SnapshotRow{
				Path:       *savePath,
				DocumentID: snap.Header.DocumentID,
				Blocks:     countBlocks(doc),
				Scenes:     len(doc.Scenes()),
				SavedAt:    time.Now().UTC(),
			})
			idx.Sync()
		}
		logger.Printf("saved %s", *savePath)
	}
}

// runCheck re-walks every stored reference key and reports ones that no
// longer resolve. Collision repairs already happened (and were audited)
// during the load rebuild.
func runCheck(doc *scene.Document, sys *idprop.System, logger *log.Logger) {
	broken := 0
	for _, kind := range scene.Kinds {
		for _, b := range doc.Collection(kind).Blocks() {
			for key, val := range b.Props() {
				if key == "id" || !strings.HasSuffix(key, "_id") {
					continue
				}
				// A stored reference key targets some kind; try them all,
				// since the snapshot does not record the target kind. An id
				// that is live in a different kind than the reference meant
				// is therefore reported healthy; see resolvesAnywhere.
				if resolvesAnywhere(sys, val) {
					continue
				}
				broken++
				fmt.Printf("broken: %s %q field %s -> id %d\n", kind, b.Name(), key, val)
			}
		}
	}
	logger.Printf("check complete: %d broken reference(s) (ids resolved across all kinds; the snapshot does not record target kinds)", broken)
}

// resolvesAnywhere is deliberately optimistic: the snapshot format stores a
// reference as a bare int prop with no target kind, so the best -check can do
// is ask whether any collection answers for the id. A dangling objects
// reference whose id happens to be live among materials passes the check.
// Persisting the target kind in the snapshot payload would tighten this.
func resolvesAnywhere(sys *idprop.System, id int64) bool {
	for _, kind := range scene.Kinds {
		if sys.Resolve(kind, id) != idprop.NotFound {
			return true
		}
	}
	return false
}

func runList(doc *scene.Document, sys *idprop.System, kind scene.Kind, logger *log.Logger) {
	if !scene.KnownKind(kind) {
		logger.Fatalf("unknown kind %q", kind)
	}
	for _, b := range doc.Collection(kind).Blocks() {
		id, err := sys.EffectiveID(kind, b)
		if err != nil {
			logger.Fatalf("id for %q: %v", b.Name(), err)
		}
		lib := ""
		if l := b.Library(); l != nil {
			lib = " (library " + l.Name() + ")"
		}
		fmt.Printf("%10d  %s%s\n", id, b.Name(), lib)
	}
}

func runServe(addr string, obs *observer.Server, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/feed", obs.FeedHandler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Printf("inspector feed (proto %s) on http://%s", inspectproto.Version, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Printf("shutting down")
	_ = srv.Close()
}

func parseRef(s string) (scene.Kind, int64, error) {
	kindStr, idStr, ok := strings.Cut(s, ":")
	if !ok {
		return "", 0, fmt.Errorf("want <kind>:<id>, got %q", s)
	}
	kind := scene.Kind(kindStr)
	if !scene.KnownKind(kind) {
		return "", 0, fmt.Errorf("unknown kind %q", kindStr)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

func countBlocks(doc *scene.Document) int {
	n := 0
	for _, c := range doc.Counts() {
		n += c
	}
	return n
}
