package vending

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vendsim/instrumentation/hooking"
	"github.com/sarchlab/vendsim/timing"
)

var _ = Describe("Controller", func() {
	var (
		engine *timing.SerialEngine
		c      *Controller
	)

	coke := func() Item {
		item, _ := ReferenceCatalog().Lookup("Coke")
		return item
	}
	water := func() Item {
		item, _ := ReferenceCatalog().Lookup("Water")
		return item
	}
	snack := func() Item {
		item, _ := ReferenceCatalog().Lookup("Snack")
		return item
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		c = MakeBuilder().WithEngine(engine).Build("VM")
	})

	It("should start idle", func() {
		s := c.Snapshot()

		Expect(s.Machine).To(Equal("VM"))
		Expect(s.State).To(Equal(Idle))
		Expect(s.Credit).To(Equal(0))
		Expect(s.Change).To(Equal(0))
		Expect(s.Selected).To(BeNil())
	})

	Context("when inserting coins", func() {
		It("should leave idle on the first coin", func() {
			c.InsertCoin(10)

			s := c.Snapshot()
			Expect(s.State).To(Equal(WaitingForSelection))
			Expect(s.Credit).To(Equal(10))
		})

		It("should accumulate credit and keep the state", func() {
			c.InsertCoin(10)
			c.InsertCoin(5)
			c.InsertCoin(5)

			s := c.Snapshot()
			Expect(s.State).To(Equal(WaitingForSelection))
			Expect(s.Credit).To(Equal(20))
		})

		It("should not re-check a pending selection", func() {
			c.InsertCoin(5)
			c.SelectItem(water())
			Expect(c.Snapshot().State).To(Equal(WaitingForPayment))

			c.InsertCoin(5)

			s := c.Snapshot()
			Expect(s.State).To(Equal(WaitingForPayment))
			Expect(s.Credit).To(Equal(10))
			Expect(s.SelectedName()).To(Equal("Water"))
			Expect(engine.Pending()).To(Equal(0))
		})
	})

	Context("when selecting an item", func() {
		It("should wait for payment when nothing was inserted", func() {
			c.SelectItem(coke())

			s := c.Snapshot()
			Expect(s.State).To(Equal(WaitingForPayment))
			Expect(s.SelectedName()).To(Equal("Coke"))
			Expect(s.Credit).To(Equal(0))
		})

		It("should go out of stock and change nothing else", func() {
			c.InsertCoin(10)
			c.SelectItem(snack())

			s := c.Snapshot()
			Expect(s.State).To(Equal(OutOfStock))
			Expect(s.Credit).To(Equal(10))
			Expect(s.Selected).To(BeNil())

			c.SelectItem(snack())

			Expect(c.Snapshot().State).To(Equal(OutOfStock))
			Expect(c.Snapshot().Credit).To(Equal(10))
			Expect(engine.Pending()).To(Equal(0))
		})

		It("should keep the earlier selection when going out of stock", func() {
			c.SelectItem(water())
			c.SelectItem(snack())

			s := c.Snapshot()
			Expect(s.State).To(Equal(OutOfStock))
			Expect(s.SelectedName()).To(Equal("Water"))
		})

		It("should keep OUT_OF_STOCK when a coin is inserted", func() {
			c.SelectItem(snack())
			c.InsertCoin(5)

			s := c.Snapshot()
			Expect(s.State).To(Equal(OutOfStock))
			Expect(s.Credit).To(Equal(5))
			Expect(engine.Pending()).To(Equal(0))
		})

		It("should sell again after going out of stock", func() {
			c.InsertCoin(10)
			c.SelectItem(snack())
			c.SelectItem(water())

			Expect(c.Snapshot().State).To(Equal(DispensingItem))
		})

		It("should select by name", func() {
			Expect(c.SelectItemByName("water")).To(Succeed())
			Expect(c.Snapshot().SelectedName()).To(Equal("Water"))

			err := c.SelectItemByName("Tea")
			Expect(err).To(MatchError(ErrUnknownItem))
		})
	})

	Context("when the credit covers the price", func() {
		It("should dispense and then give no change for exact credit", func() {
			c.InsertCoin(10)
			c.InsertCoin(10)
			c.SelectItem(coke())

			s := c.Snapshot()
			Expect(s.State).To(Equal(DispensingItem))
			Expect(s.SelectedName()).To(Equal("Coke"))
			Expect(s.Credit).To(Equal(20))

			Expect(engine.RunUntil(999)).To(Succeed())
			Expect(c.Snapshot().State).To(Equal(DispensingItem))

			Expect(engine.RunUntil(1000)).To(Succeed())
			s = c.Snapshot()
			Expect(s.State).To(Equal(GivingChange))
			Expect(s.Change).To(Equal(0))
			Expect(s.Credit).To(Equal(0))
			Expect(s.SelectedName()).To(Equal("Coke"))

			Expect(engine.RunUntil(2999)).To(Succeed())
			Expect(c.Snapshot().State).To(Equal(GivingChange))

			Expect(engine.RunUntil(3000)).To(Succeed())
			s = c.Snapshot()
			Expect(s.State).To(Equal(Idle))
			Expect(s.Change).To(Equal(0))
			Expect(s.Credit).To(Equal(0))
			Expect(s.Selected).To(BeNil())
		})

		It("should give the remaining credit as change", func() {
			c.InsertCoin(10)
			c.InsertCoin(10)
			c.InsertCoin(5)
			c.SelectItem(water())

			Expect(engine.RunUntil(1000)).To(Succeed())

			s := c.Snapshot()
			Expect(s.State).To(Equal(GivingChange))
			Expect(s.Change).To(Equal(15))
			Expect(s.Credit).To(Equal(0))

			Expect(engine.Run()).To(Succeed())

			s = c.Snapshot()
			Expect(s.State).To(Equal(Idle))
			Expect(s.Change).To(Equal(0))
		})

		It("should not decrement the stock", func() {
			c.InsertCoin(10)
			c.SelectItem(water())
			Expect(engine.Run()).To(Succeed())

			c.InsertCoin(10)
			c.SelectItem(water())
			Expect(engine.Run()).To(Succeed())

			item, _ := c.Catalog().Lookup("Water")
			Expect(item.Stock).To(Equal(2))
		})

		It("should zero coins inserted while dispensing", func() {
			c.InsertCoin(10)
			c.InsertCoin(10)
			c.SelectItem(coke())
			c.InsertCoin(10)

			s := c.Snapshot()
			Expect(s.State).To(Equal(DispensingItem))
			Expect(s.Credit).To(Equal(30))

			Expect(engine.RunUntil(1000)).To(Succeed())

			s = c.Snapshot()
			Expect(s.Credit).To(Equal(0))
			Expect(s.Change).To(Equal(0))
		})

		It("should keep coins inserted while giving change", func() {
			c.InsertCoin(10)
			c.InsertCoin(5)
			c.SelectItem(water())
			Expect(engine.RunUntil(1500)).To(Succeed())
			Expect(c.Snapshot().State).To(Equal(GivingChange))

			c.InsertCoin(10)

			s := c.Snapshot()
			Expect(s.State).To(Equal(GivingChange))
			Expect(s.Credit).To(Equal(10))

			Expect(engine.Run()).To(Succeed())

			s = c.Snapshot()
			Expect(s.State).To(Equal(Idle))
			Expect(s.Credit).To(Equal(10))
			Expect(s.Change).To(Equal(0))
		})

		It("should let a selection while giving change race the reset", func() {
			c.InsertCoin(10)
			c.InsertCoin(10)
			c.InsertCoin(5)
			c.SelectItem(water())
			Expect(engine.RunUntil(1500)).To(Succeed())

			c.SelectItem(coke())

			s := c.Snapshot()
			Expect(s.State).To(Equal(WaitingForPayment))
			Expect(s.Change).To(Equal(15))
			Expect(s.SelectedName()).To(Equal("Coke"))

			Expect(engine.Run()).To(Succeed())

			s = c.Snapshot()
			Expect(s.State).To(Equal(Idle))
			Expect(s.Change).To(Equal(0))
			Expect(s.Selected).To(BeNil())
		})
	})

	It("should honor custom delays", func() {
		c = MakeBuilder().
			WithEngine(engine).
			WithDispenseDelay(100 * time.Millisecond).
			WithChangeDelay(50 * time.Millisecond).
			Build("Fast")

		c.InsertCoin(10)
		c.SelectItem(water())

		Expect(engine.RunUntil(100)).To(Succeed())
		Expect(c.Snapshot().State).To(Equal(GivingChange))

		Expect(engine.RunUntil(150)).To(Succeed())
		Expect(c.Snapshot().State).To(Equal(Idle))
	})

	It("should stop the timed steps on close", func() {
		c.InsertCoin(10)
		c.InsertCoin(10)
		c.SelectItem(coke())

		c.Close()
		Expect(engine.Run()).To(Succeed())

		s := c.Snapshot()
		Expect(s.State).To(Equal(DispensingItem))
		Expect(s.Credit).To(Equal(20))

		c.SelectItem(water())
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should leave a sale started after close in DISPENSING_ITEM", func() {
		c.Close()

		c.InsertCoin(10)
		c.SelectItem(water())
		Expect(engine.Run()).To(Succeed())

		s := c.Snapshot()
		Expect(s.State).To(Equal(DispensingItem))
		Expect(s.Credit).To(Equal(10))
		Expect(engine.Pending()).To(Equal(0))
	})

	Context("when actions are posted", func() {
		It("should apply them when the engine runs", func() {
			c.PostInsertCoin(10)
			Expect(c.PostSelectItem("water")).To(Succeed())

			Expect(c.Snapshot().State).To(Equal(Idle))

			Expect(engine.RunUntil(0)).To(Succeed())

			s := c.Snapshot()
			Expect(s.State).To(Equal(DispensingItem))
			Expect(s.SelectedName()).To(Equal("Water"))
		})

		It("should reject unknown items before posting", func() {
			Expect(c.PostSelectItem("Tea")).To(MatchError(ErrUnknownItem))
			Expect(engine.Pending()).To(Equal(0))
		})
	})

	It("should reject unknown events", func() {
		Expect(c.Handle("nonsense")).NotTo(Succeed())
	})

	It("should report every state change through hooks", func() {
		var (
			transitions []Transition
			coins       []CoinInsertion
			selected    []Item
		)

		c.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			Expect(ctx.Domain).To(BeIdenticalTo(c))

			switch ctx.Pos {
			case HookPosStateChange:
				transitions = append(transitions, ctx.Item.(Transition))
			case HookPosCoinInserted:
				coins = append(coins, ctx.Item.(CoinInsertion))
			case HookPosItemSelected:
				selected = append(selected, ctx.Item.(Item))
			}
		}))

		c.InsertCoin(10)
		c.InsertCoin(10)
		c.InsertCoin(5)
		c.SelectItem(water())
		Expect(engine.Run()).To(Succeed())

		Expect(coins).To(Equal([]CoinInsertion{
			{Amount: 10, Credit: 10},
			{Amount: 10, Credit: 20},
			{Amount: 5, Credit: 25},
		}))
		Expect(selected).To(Equal([]Item{water()}))

		Expect(transitions).To(HaveLen(4))
		Expect(transitions[0]).To(Equal(Transition{
			Machine: "VM",
			From:    Idle,
			To:      WaitingForSelection,
			Cause:   CauseInsertCoin,
			Credit:  10,
		}))
		Expect(transitions[1].To).To(Equal(DispensingItem))
		Expect(transitions[1].Selected).To(Equal("Water"))
		Expect(transitions[2]).To(Equal(Transition{
			Machine:  "VM",
			From:     DispensingItem,
			To:       GivingChange,
			Cause:    CauseDispenseDone,
			Time:     1000,
			At:       time.Second,
			Change:   15,
			Selected: "Water",
		}))
		Expect(transitions[3].To).To(Equal(Idle))
		Expect(transitions[3].Time).To(Equal(timing.VTimeInCycle(3000)))
		Expect(transitions[3].Cause).To(Equal(CauseChangeDone))
	})

	It("should report repeated out-of-stock selections", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		hook := NewMockHook(mockCtrl)
		c.AcceptHook(hook)

		var states []MachineState
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosStateChange {
					states = append(states, ctx.Item.(Transition).To)
				}
			}).
			Times(4)

		c.SelectItem(snack())
		c.SelectItem(snack())

		Expect(states).To(Equal([]MachineState{OutOfStock, OutOfStock}))
	})
})

var _ = Describe("Controller scheduling", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEventScheduler
		c        *Controller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEventScheduler(mockCtrl)
		c = MakeBuilder().
			WithEngine(engine).
			WithDispenseDelay(250 * time.Millisecond).
			Build("VM")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule the dispense step after the delay", func() {
		engine.EXPECT().CurrentTime().Return(timing.VTimeInCycle(500)).AnyTimes()

		var scheduled timing.ScheduledEvent
		engine.EXPECT().
			Schedule(gomock.Any()).
			Do(func(evt timing.ScheduledEvent) { scheduled = evt })

		c.InsertCoin(10)
		c.InsertCoin(5)
		c.SelectItem(Item{Name: "Water", Price: 10, Stock: 2})

		Expect(scheduled.Time).To(Equal(timing.VTimeInCycle(750)))
		Expect(scheduled.Handler).To(BeIdenticalTo(c))
		Expect(scheduled.Cancel).NotTo(BeNil())
		Expect(scheduled.Event).To(BeAssignableToTypeOf(&DispenseDoneEvent{}))
		Expect(scheduled.Event.(*DispenseDoneEvent).Remaining).To(Equal(5))

		c.Close()
		Expect(scheduled.Cancel.Cancelled()).To(BeTrue())
	})

	It("should post actions at the current time", func() {
		engine.EXPECT().CurrentTime().Return(timing.VTimeInCycle(42))
		engine.EXPECT().
			Schedule(gomock.Any()).
			Do(func(evt timing.ScheduledEvent) {
				Expect(evt.Time).To(Equal(timing.VTimeInCycle(42)))
				Expect(evt.Event).To(Equal(&InsertCoinEvent{Amount: 10}))
				Expect(evt.Cancel).To(BeNil())
			})

		c.PostInsertCoin(10)
	})
})

var _ = Describe("Builder", func() {
	It("should panic without an engine", func() {
		Expect(func() { MakeBuilder().Build("VM") }).To(Panic())
	})

	It("should panic on negative delays", func() {
		b := MakeBuilder().WithEngine(timing.NewSerialEngine())

		Expect(func() {
			b.WithDispenseDelay(-time.Second).Build("VM")
		}).To(Panic())
	})

	It("should use the given catalog", func() {
		catalog := MustNewCatalog(Item{Name: "Tea", Price: 5, Stock: 1})
		c := MakeBuilder().
			WithEngine(timing.NewSerialEngine()).
			WithCatalog(catalog).
			Build("VM")

		Expect(c.SelectItemByName("Coke")).To(MatchError(ErrUnknownItem))
		Expect(c.SelectItemByName("Tea")).To(Succeed())
	})
})
