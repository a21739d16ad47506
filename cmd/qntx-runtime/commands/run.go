package commands

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/conduit"
	"github.com/teranos/qntx-runtime/config"
	"github.com/teranos/qntx-runtime/eventloop"
	"github.com/teranos/qntx-runtime/extension"
	"github.com/teranos/qntx-runtime/resource"
	"github.com/teranos/qntx-runtime/rtlog"
	"github.com/teranos/qntx-runtime/services/ai/llm"
	"github.com/teranos/qntx-runtime/services/application"
	"github.com/teranos/qntx-runtime/services/bluetooth"
	"github.com/teranos/qntx-runtime/services/broadcast"
	"github.com/teranos/qntx-runtime/services/diagnostics"
	"github.com/teranos/qntx-runtime/services/dns"
	"github.com/teranos/qntx-runtime/services/fs"
	"github.com/teranos/qntx-runtime/services/geolocation"
	"github.com/teranos/qntx-runtime/services/notification"
	"github.com/teranos/qntx-runtime/services/osinfo"
	"github.com/teranos/qntx-runtime/services/permissions"
	"github.com/teranos/qntx-runtime/services/platform"
	"github.com/teranos/qntx-runtime/services/process"
	"github.com/teranos/qntx-runtime/services/timers"
	"github.com/teranos/qntx-runtime/services/udp"
	"github.com/teranos/qntx-runtime/serviceworker"
	"github.com/teranos/qntx-runtime/window"
)

// RunCmd starts the runtime: event loop, router, every core service, the
// service worker container, the window manager, and the conduit
// websocket listener — following cmd/qntx's server command in shape,
// rewired onto the application-runtime's own services.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the qntx-runtime process",
	Long:  "Start the event loop, IPC router, core services, and conduit websocket listener.",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonLog, _ := cmd.Flags().GetBool("json")
		if err := rtlog.Initialize(jsonLog); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		loop := eventloop.New(eventloop.Options{DedicatedThread: true})
		loop.Start()

		router := bridge.NewRouter(loop)
		bridge.RegisterCoreRoutes(router)

		res := resource.NewResolver("com.qntx.runtime")

		hub := conduit.NewHub(cfg.Server.AllowedOrigins)
		hub.SetPort(cfg.Server.ConduitPort)
		router.AttachConduit(hub)
		conduit.RegisterRoutes(router, hub)

		registerCoreServices(router, loop, res, cfg)

		mux := http.NewServeMux()
		mux.HandleFunc("/conduit", func(w http.ResponseWriter, r *http.Request) {
			clientID := r.URL.Query().Get("id")
			if err := hub.Upgrade(w, r, clientID); err != nil {
				rtlog.Named("conduit").Warnw("upgrade failed", "error", err)
			}
		})

		addr := "127.0.0.1:" + strconv.Itoa(cfg.Server.ConduitPort)
		rtlog.Named("run").Infow("qntx-runtime listening", "addr", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	RunCmd.Flags().Bool("json", false, "emit JSON logs instead of the console theme")
}

// registerCoreServices constructs every core service and binds its
// routes to router, mirroring spec.md §4.2's module list in full.
func registerCoreServices(router *bridge.Router, loop *eventloop.Loop, res *resource.Resolver, cfg *config.Config) {
	fsService := fs.New(res)
	fs.RegisterRoutes(router, fsService)

	udpManager := udp.NewManager()
	udp.RegisterRoutes(router, udpManager)

	procService := process.New()
	process.RegisterRoutes(router, procService)

	timerService := timers.New(loop)
	timers.RegisterRoutes(router, timerService)

	dnsService := dns.New()
	dns.RegisterRoutes(router, dnsService)

	osService := osinfo.New(res, udpManager)
	osinfo.RegisterRoutes(router, osService)

	platformService := platform.New(headlessOpener{})
	platform.RegisterRoutes(router, platformService)

	notificationService := notification.New(5)
	notification.RegisterRoutes(router, notificationService)

	permissionsService := permissions.New(map[string]bool{}, headlessPrompter{})
	permissions.RegisterRoutes(router, permissionsService)

	broadcastService := broadcast.New()
	broadcast.RegisterRoutes(router, broadcastService)

	geoService := geolocation.New(headlessGeo{})
	geolocation.RegisterRoutes(router, geoService)

	if diagService, err := openDiagnostics(cfg.Diagnostics.Path); err == nil {
		diagnostics.RegisterRoutes(router, diagService)
	} else {
		rtlog.Named("run").Warnw("diagnostics store unavailable", "error", err)
	}

	llmService := llm.New(cfg.LLM.SearchPaths, cfg.LLM.LoRAPaths)
	llm.RegisterRoutes(router, llmService, "")

	engine := serviceworker.NewEngine(context.Background())
	workerContainer := serviceworker.NewContainer(loop, engine)
	serviceworker.RegisterRoutes(router, workerContainer)

	windowManager := window.NewManager(cfg.Diagnostics.Path + ".windows")
	window.RegisterRoutes(router, windowManager, newHeadlessHost)

	appService := application.New(windowManager, headlessApplicationHost{})
	application.RegisterRoutes(router, appService)

	bluetoothService := bluetooth.New(cfg.Permissions.AllowBluetooth, headlessBluetoothAdapter{})
	bluetooth.RegisterRoutes(router, bluetoothService)

	extHost := extension.NewHost(procService)
	extension.RegisterRoutes(router, extHost, cfg.Extension.Paths)
}

func openDiagnostics(path string) (*diagnostics.Service, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	return diagnostics.Open(db)
}
