// Package monitoring serves an HTTP API and a web page for watching and
// driving running vending machines.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/vendsim/logging"
	"github.com/sarchlab/vendsim/monitoring/web"
	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/vending"
)

// Monitor turns a simulation into a server that allows external monitoring
// and controlling of the machines.
type Monitor struct {
	engine     timing.Engine
	freq       timing.Freq
	portNumber int
	logger     *slog.Logger

	machinesLock sync.RWMutex
	machines     []*vending.Controller

	server *http.Server
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		freq:   1 * timing.KHz,
		logger: logging.Discard(),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("port number is not allowed, using a random port",
			slog.Int("port", portNumber))

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithFreq sets the frequency used to report the engine time in
// milliseconds.
func (m *Monitor) WithFreq(freq timing.Freq) *Monitor {
	m.freq = freq
	return m
}

// WithLogger sets the logger for server events.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logging.OrDiscard(logger).With(logging.Component("monitor"))
	return m
}

// RegisterEngine registers the engine that drives the machines.
func (m *Monitor) RegisterEngine(e timing.Engine) {
	m.engine = e
}

// RegisterMachine registers a machine to be monitored.
func (m *Monitor) RegisterMachine(c *vending.Controller) {
	m.machinesLock.Lock()
	defer m.machinesLock.Unlock()

	m.machines = append(m.machines, c)
}

// Handler returns the router serving the API and the web page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueEngine).Methods(http.MethodPost)
	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/list_components", m.listComponents).Methods(http.MethodGet)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails).
		Methods(http.MethodGet)
	r.HandleFunc("/api/machine/{name}/state", m.machineState).
		Methods(http.MethodGet)
	r.HandleFunc("/api/machine/{name}/catalog", m.machineCatalog).
		Methods(http.MethodGet)
	r.HandleFunc("/api/machine/{name}/coin/{amount}", m.insertCoin).
		Methods(http.MethodPost)
	r.HandleFunc("/api/machine/{name}/select/{item}", m.selectItem).
		Methods(http.MethodPost)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// web page.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", logging.Error(err))
		}
	}()

	m.logger.Info("monitoring simulation", slog.String("url", url))

	return url, nil
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

var errNoEngine = errors.New("no engine registered")

// engineOr503 returns the registered engine, or writes 503 and returns nil.
func (m *Monitor) engineOr503(w http.ResponseWriter) timing.Engine {
	if m.engine == nil {
		m.writeError(w, http.StatusServiceUnavailable, errNoEngine)
	}

	return m.engine
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	engine := m.engineOr503(w)
	if engine == nil {
		return
	}

	engine.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	engine := m.engineOr503(w)
	if engine == nil {
		return
	}

	engine.Continue()
	w.WriteHeader(http.StatusNoContent)
}

type nowRsp struct {
	Now uint64  `json:"now"`
	Ms  float64 `json:"ms"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	engine := m.engineOr503(w)
	if engine == nil {
		return
	}

	now := engine.CurrentTime()

	m.writeJSON(w, http.StatusOK, nowRsp{
		Now: uint64(now),
		Ms:  toMs(m.freq.Duration(now)),
	})
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.machinesLock.RLock()
	names := make([]string, 0, len(m.machines))
	for _, c := range m.machines {
		names = append(names, c.Name())
	}
	m.machinesLock.RUnlock()

	m.writeJSON(w, http.StatusOK, names)
}

type componentDetail struct {
	Name     string
	Snapshot vending.Snapshot
	Catalog  []vending.Item
	NumHooks int
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	machine := m.findMachineOr404(w, mux.Vars(r)["name"])
	if machine == nil {
		return
	}

	detail := &componentDetail{
		Name:     machine.Name(),
		Snapshot: machine.Snapshot(),
		Catalog:  machine.Catalog().Items(),
		NumHooks: machine.NumHooks(),
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(detail)
	serializer.SetMaxDepth(2)

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("serializing machine failed",
			logging.Machine(machine.Name()), logging.Error(err))
	}
}

type snapshotView struct {
	Machine  string        `json:"machine" cbor:"machine"`
	State    string        `json:"state" cbor:"state"`
	Credit   int           `json:"credit" cbor:"credit"`
	Change   int           `json:"change" cbor:"change"`
	Selected *vending.Item `json:"selected,omitempty" cbor:"selected,omitempty"`
	Time     uint64        `json:"time" cbor:"time"`
	Ms       float64       `json:"ms" cbor:"ms"`
}

func (m *Monitor) machineState(w http.ResponseWriter, r *http.Request) {
	machine := m.findMachineOr404(w, mux.Vars(r)["name"])
	if machine == nil {
		return
	}

	s := machine.Snapshot()
	view := snapshotView{
		Machine:  s.Machine,
		State:    s.State.String(),
		Credit:   s.Credit,
		Change:   s.Change,
		Selected: s.Selected,
		Time:     uint64(s.Time),
		Ms:       toMs(m.freq.Duration(s.Time)),
	}

	if acceptsCBOR(r) {
		m.writeCBOR(w, view)
		return
	}

	m.writeJSON(w, http.StatusOK, view)
}

func acceptsCBOR(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		if strings.Contains(accept, "application/cbor") {
			return true
		}
	}

	return false
}

func (m *Monitor) machineCatalog(w http.ResponseWriter, r *http.Request) {
	machine := m.findMachineOr404(w, mux.Vars(r)["name"])
	if machine == nil {
		return
	}

	m.writeJSON(w, http.StatusOK, machine.Catalog())
}

type actionRsp struct {
	Machine string `json:"machine"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
	Item    string `json:"item,omitempty"`
}

func (m *Monitor) insertCoin(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	machine := m.findMachineOr404(w, vars["name"])
	if machine == nil {
		return
	}

	coin, err := vending.ParseCoin(vars["amount"])
	if err != nil {
		m.writeError(w, http.StatusBadRequest, err)
		return
	}

	machine.PostInsertCoin(int(coin))

	m.writeJSON(w, http.StatusAccepted, actionRsp{
		Machine: machine.Name(),
		Action:  "coin",
		Amount:  int(coin),
	})
}

func (m *Monitor) selectItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	machine := m.findMachineOr404(w, vars["name"])
	if machine == nil {
		return
	}

	item, ok := machine.Catalog().Lookup(vars["item"])
	if !ok {
		m.writeError(w, http.StatusNotFound,
			fmt.Errorf("%w: %q", vending.ErrUnknownItem, vars["item"]))
		return
	}

	if err := machine.PostSelectItem(item.Name); err != nil {
		m.writeError(w, http.StatusNotFound, err)
		return
	}

	m.writeJSON(w, http.StatusAccepted, actionRsp{
		Machine: machine.Name(),
		Action:  "select",
		Item:    item.Name,
	})
}

func (m *Monitor) findMachineOr404(
	w http.ResponseWriter,
	name string,
) *vending.Controller {
	m.machinesLock.RLock()
	defer m.machinesLock.RUnlock()

	for _, c := range m.machines {
		if c.Name() == name {
			return c
		}
	}

	m.writeError(w, http.StatusNotFound,
		fmt.Errorf("machine %q not found", name))

	return nil
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, http.StatusOK, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.writeError(w, http.StatusConflict, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, http.StatusOK, prof)
}

type errorRsp struct {
	Error string `json:"error"`
}

func (m *Monitor) writeError(w http.ResponseWriter, status int, err error) {
	m.writeJSON(w, status, errorRsp{Error: err.Error()})
}

func (m *Monitor) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("encoding response failed", logging.Error(err))
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		m.logger.Debug("writing response failed", logging.Error(err))
	}
}

func (m *Monitor) writeCBOR(w http.ResponseWriter, v any) {
	data, err := cbor.Marshal(v)
	if err != nil {
		m.logger.Error("encoding response failed", logging.Error(err))
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/cbor")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		m.logger.Debug("writing response failed", logging.Error(err))
	}
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
