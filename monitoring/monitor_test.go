package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/fxamacker/cbor/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/vending"
)

var _ = Describe("Monitor", func() {
	var (
		engine  *timing.SerialEngine
		machine *vending.Controller
		m       *Monitor
		handler http.Handler
	)

	do := func(method, url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, url, nil))

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		machine = vending.MakeBuilder().WithEngine(engine).Build("VM")

		m = NewMonitor()
		m.RegisterEngine(engine)
		m.RegisterMachine(machine)
		handler = m.Handler()
	})

	It("should report the engine time", func() {
		Expect(engine.RunUntil(1500)).To(Succeed())

		rec := do(http.MethodGet, "/api/now")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp nowRsp
		decode(rec, &rsp)
		Expect(rsp.Now).To(Equal(uint64(1500)))
		Expect(rsp.Ms).To(Equal(1500.0))
	})

	It("should list machines", func() {
		rec := do(http.MethodGet, "/api/list_components")

		var names []string
		decode(rec, &names)
		Expect(names).To(Equal([]string{"VM"}))
	})

	It("should return 404 for unknown machines", func() {
		Expect(do(http.MethodGet, "/api/machine/Other/state").Code).
			To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPost, "/api/machine/Other/coin/5").Code).
			To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/api/component/Other").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should serve the machine state as JSON", func() {
		machine.InsertCoin(10)
		Expect(machine.SelectItemByName("Water")).To(Succeed())

		rec := do(http.MethodGet, "/api/machine/VM/state")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

		var view snapshotView
		decode(rec, &view)
		Expect(view.State).To(Equal("DISPENSING_ITEM"))
		Expect(view.Credit).To(Equal(10))
		Expect(view.Selected.Name).To(Equal("Water"))
	})

	It("should serve the machine state as CBOR on request", func() {
		machine.InsertCoin(5)

		req := httptest.NewRequest(http.MethodGet, "/api/machine/VM/state", nil)
		req.Header.Set("Accept", "application/cbor")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/cbor"))

		var view snapshotView
		Expect(cbor.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
		Expect(view.Machine).To(Equal("VM"))
		Expect(view.State).To(Equal("WAITING_FOR_SELECTION"))
		Expect(view.Credit).To(Equal(5))
		Expect(view.Selected).To(BeNil())
	})

	It("should serve the catalog", func() {
		rec := do(http.MethodGet, "/api/machine/VM/catalog")

		var items []vending.Item
		decode(rec, &items)
		Expect(items).To(Equal(vending.ReferenceCatalog().Items()))
	})

	It("should queue coins and reject invalid amounts", func() {
		rec := do(http.MethodPost, "/api/machine/VM/coin/10")
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(machine.Snapshot().Credit).To(Equal(0))

		Expect(engine.RunUntil(0)).To(Succeed())
		Expect(machine.Snapshot().Credit).To(Equal(10))

		for _, amount := range []string{"1", "20", "abc"} {
			rec = do(http.MethodPost, "/api/machine/VM/coin/"+amount)
			Expect(rec.Code).To(Equal(http.StatusBadRequest), amount)
		}

		Expect(engine.Pending()).To(Equal(0))
	})

	It("should queue selections and reject unknown items", func() {
		machine.InsertCoin(10)

		rec := do(http.MethodPost, "/api/machine/VM/select/water")
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(rec.Body.String()).To(ContainSubstring(`"item":"Water"`))

		Expect(engine.RunUntil(0)).To(Succeed())
		Expect(machine.Snapshot().State).To(Equal(vending.DispensingItem))

		rec = do(http.MethodPost, "/api/machine/VM/select/Tea")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should pause and continue the engine", func() {
		Expect(do(http.MethodPost, "/api/pause").Code).
			To(Equal(http.StatusNoContent))
		Expect(do(http.MethodPost, "/api/continue").Code).
			To(Equal(http.StatusNoContent))

		machine.PostInsertCoin(5)
		Expect(engine.Run()).To(Succeed())
		Expect(machine.Snapshot().Credit).To(Equal(5))
	})

	It("should serialize machine details", func() {
		rec := do(http.MethodGet, "/api/component/VM")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should report process resources", func() {
		rec := do(http.MethodGet, "/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		decode(rec, &rsp)
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the web page", func() {
		rec := do(http.MethodGet, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>")).
			To(BeTrue())
	})

	It("should answer 503 for engine routes without an engine", func() {
		handler = NewMonitor().Handler()

		Expect(do(http.MethodGet, "/api/now").Code).
			To(Equal(http.StatusServiceUnavailable))
		Expect(do(http.MethodPost, "/api/pause").Code).
			To(Equal(http.StatusServiceUnavailable))
		Expect(do(http.MethodPost, "/api/continue").Code).
			To(Equal(http.StatusServiceUnavailable))
	})

	It("should replace low port numbers with a random port", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should start and stop a server", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(url + "/api/list_components")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(m.Shutdown(context.Background())).To(Succeed())
	})
})
