package env_test

import (
	"bytes"
	"log/slog"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/multicart/internal/config"
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/env"
	"github.com/san-kum/multicart/internal/spaces"
)

var _ = Describe("MultiCart", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	Describe("construction", func() {
		It("sizes the spaces from the configured cart count", func() {
			for _, n := range []int{1, 2, 5} {
				cfg.Env.Carts = n
				e, err := env.New(cfg, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.NumUnits()).To(Equal(n))
				Expect(e.ActionSpace().N()).To(Equal(n))
				Expect(e.ObservationSpace().Len()).To(Equal(n))
			}
		})

		It("bounds every unit with the same box", func() {
			e, err := env.New(cfg, 1)
			Expect(err).NotTo(HaveOccurred())

			want := env.ObservationBound(cfg)
			for i := 0; i < e.ObservationSpace().Len(); i++ {
				Expect(e.ObservationSpace().At(i).High()).To(Equal(want))
			}
			Expect(want[0]).To(BeNumerically("~", 4.8, 1e-12))
			Expect(want[2]).To(BeNumerically("~", 2*cfg.Env.ThetaThreshold, 1e-12))
		})

		It("starts with no grace counter", func() {
			e, err := env.New(cfg, 1)
			Expect(err).NotTo(HaveOccurred())
			_, ok := e.StepsBeyondDone()
			Expect(ok).To(BeFalse())
		})

		It("rejects an invalid configuration", func() {
			cfg.Env.Carts = 0
			_, err := env.New(cfg, 1)
			Expect(err).To(MatchError(config.ErrInvalid))
		})
	})

	Describe("Step", func() {
		It("rejects malformed actions before moving any unit", func() {
			a, b := newTiltingUnit(0.01, 1), newTiltingUnit(0.01, 1)
			e, err := env.New(cfg, 1, env.WithUnits(a, b))
			Expect(err).NotTo(HaveOccurred())

			for _, bad := range []spaces.Action{{1}, {1, 0, 1}, {0, 2}, {-1, 0}} {
				obs, reward, done, info, err := e.Step(bad)
				Expect(err).To(MatchError(spaces.ErrInvalidAction))
				Expect(obs).To(BeNil())
				Expect(reward).To(BeZero())
				Expect(done).To(BeFalse())
				Expect(info).To(BeNil())
			}
			Expect(a.actions).To(BeEmpty())
			Expect(b.actions).To(BeEmpty())
		})

		It("routes each action slot to its unit", func() {
			a, b, c := newTiltingUnit(0, 1), newTiltingUnit(0, 1), newTiltingUnit(0, 1)
			e, err := env.New(cfg, 1, env.WithUnits(a, b, c))
			Expect(err).NotTo(HaveOccurred())

			_, _, _, _, err = e.Step(spaces.Action{1, 0, 1})
			Expect(err).NotTo(HaveOccurred())
			_, _, _, _, err = e.Step(spaces.Action{0, 0, 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.actions).To(Equal([]int{1, 0}))
			Expect(b.actions).To(Equal([]int{0, 0}))
			Expect(c.actions).To(Equal([]int{1, 1}))
		})

		It("pays full reward while every unit is alive", func() {
			e, err := env.New(cfg, 7)
			Expect(err).NotTo(HaveOccurred())
			e.Reset()

			obs, reward, done, info, err := e.Step(spaces.Action{1, 0, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(reward).To(Equal(1.0))
			Expect(done).To(BeFalse())
			Expect(info).NotTo(BeNil())
			Expect(info).To(BeEmpty())
			Expect(obs).To(HaveLen(3))
		})

		It("keeps advancing units after another one has failed", func() {
			fast, slow := newTiltingUnit(0.5, 0.2), newTiltingUnit(0.01, 1)
			e, err := env.New(cfg, 1, env.WithUnits(fast, slow))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 4; i++ {
				_, _, _, _, err := e.Step(spaces.Action{0, 1})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(fast.actions).To(HaveLen(4))
			Expect(slow.actions).To(HaveLen(4))
			Expect(e.TerminalUnits()).To(Equal([]int{0}))
		})

		It("recomputes done from the live units instead of latching it", func() {
			u := newTiltingUnit(0.3, 0.2)
			e, err := env.New(cfg, 1, env.WithUnits(u))
			Expect(err).NotTo(HaveOccurred())

			_, reward, done, _, _ := e.Step(spaces.Action{1})
			Expect(done).To(BeTrue())
			Expect(reward).To(Equal(1.0))

			u.tilt = -0.3
			_, reward, done, _, _ = e.Step(spaces.Action{1})
			Expect(done).To(BeFalse())
			Expect(reward).To(Equal(1.0))

			steps, ok := e.StepsBeyondDone()
			Expect(ok).To(BeTrue())
			Expect(steps).To(BeZero())
		})
	})

	Describe("the two-cart failure scenario", func() {
		var (
			e      *env.MultiCart
			logBuf *bytes.Buffer
		)

		BeforeEach(func() {
			logBuf = &bytes.Buffer{}
			logger := slog.New(slog.NewTextHandler(logBuf, nil))
			upright := newTiltingUnit(0, cfg.Env.ThetaThreshold)
			falling := newTiltingUnit(0.1, cfg.Env.ThetaThreshold)

			var err error
			e, err = env.New(cfg, 1, env.WithUnits(upright, falling), env.WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
		})

		It("pays through the failing step, then degrades and warns once", func() {
			action := spaces.Action{1, 0}

			for step := 1; step <= 2; step++ {
				_, reward, done, _, err := e.Step(action)
				Expect(err).NotTo(HaveOccurred())
				Expect(done).To(BeFalse(), "step %d", step)
				Expect(reward).To(Equal(1.0), "step %d", step)
			}

			_, reward, done, _, err := e.Step(action)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(reward).To(Equal(1.0))
			steps, ok := e.StepsBeyondDone()
			Expect(ok).To(BeTrue())
			Expect(steps).To(Equal(0))
			Expect(logBuf.String()).To(BeEmpty())

			_, reward, done, _, err = e.Step(action)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(reward).To(Equal(0.0))
			steps, _ = e.StepsBeyondDone()
			Expect(steps).To(Equal(1))

			for i := 2; i <= 5; i++ {
				_, reward, _, _, _ = e.Step(action)
				Expect(reward).To(Equal(0.0))
				steps, _ = e.StepsBeyondDone()
				Expect(steps).To(Equal(i))
			}

			Expect(strings.Count(logBuf.String(), "level=WARN")).To(Equal(1))
		})

		It("warns again in the next episode after a reset", func() {
			for i := 0; i < 5; i++ {
				e.Step(spaces.Action{1, 0})
			}
			e.Reset()
			_, ok := e.StepsBeyondDone()
			Expect(ok).To(BeFalse())

			for i := 0; i < 5; i++ {
				e.Step(spaces.Action{1, 0})
			}
			Expect(strings.Count(logBuf.String(), "level=WARN")).To(Equal(2))
		})
	})

	Describe("Reset", func() {
		It("returns an in-bounds, non-terminal observation before any step", func() {
			for seed := int64(0); seed < 20; seed++ {
				e, err := env.New(cfg, seed)
				Expect(err).NotTo(HaveOccurred())

				obs := e.Reset()
				Expect(obs).To(HaveLen(cfg.Env.Carts))
				for _, s := range obs {
					Expect(s).To(HaveLen(4))
				}
				Expect(e.ObservationSpace().Contains(obs)).To(BeTrue())
				Expect(e.Done()).To(BeFalse())
			}
		})

		It("resets every unit and clears the grace counter", func() {
			a, b := newTiltingUnit(0.5, 0.2), newTiltingUnit(0, 0.2)
			e, err := env.New(cfg, 1, env.WithUnits(a, b))
			Expect(err).NotTo(HaveOccurred())

			e.Step(spaces.Action{0, 0})
			_, ok := e.StepsBeyondDone()
			Expect(ok).To(BeTrue())

			obs := e.Reset()
			Expect(a.resets).To(Equal(1))
			Expect(b.resets).To(Equal(1))
			_, ok = e.StepsBeyondDone()
			Expect(ok).To(BeFalse())
			Expect(e.Done()).To(BeFalse())
			Expect(obs[0][2]).To(BeZero())
		})

		It("gives carts independent random states", func() {
			cfg.Env.Carts = 2
			e, err := env.New(cfg, 3)
			Expect(err).NotTo(HaveOccurred())
			obs := e.Reset()
			Expect(obs[0]).NotTo(Equal(obs[1]))
		})
	})

	Describe("Render and Close", func() {
		It("creates the viewer once and passes init only the first time", func() {
			a, b := newTiltingUnit(0, 1), newTiltingUnit(0, 1)
			e, err := env.New(cfg, 1, env.WithUnits(a, b), env.WithOutput(&bytes.Buffer{}))
			Expect(err).NotTo(HaveOccurred())

			_, err = e.Render(env.ModeRGBArray)
			Expect(err).NotTo(HaveOccurred())
			_, err = e.Render(env.ModeHuman)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.inits).To(Equal([]bool{true, false}))
			Expect(b.inits).To(Equal([]bool{true, false}))
		})

		It("returns an rgb frame of the configured size", func() {
			e, err := env.New(cfg, 1)
			Expect(err).NotTo(HaveOccurred())
			e.Reset()

			img, err := e.Render(env.ModeRGBArray)
			Expect(err).NotTo(HaveOccurred())
			Expect(img).NotTo(BeNil())
			Expect(img.Bounds().Dx()).To(Equal(cfg.Env.ScreenWidth))
			Expect(img.Bounds().Dy()).To(Equal(cfg.Env.ScreenHeight))
			Expect(e.Close()).To(Succeed())
		})

		It("writes human frames to the configured output", func() {
			var out bytes.Buffer
			e, err := env.New(cfg, 1, env.WithOutput(&out))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()

			img, err := e.Render(env.ModeHuman)
			Expect(err).NotTo(HaveOccurred())
			Expect(img).To(BeNil())
			Expect(out.Len()).To(BeNumerically(">", 0))
		})

		It("rejects unknown modes", func() {
			e, err := env.New(cfg, 1)
			Expect(err).NotTo(HaveOccurred())
			_, err = e.Render(env.Mode("ansi"))
			Expect(err).To(MatchError(env.ErrUnsupportedMode))
		})

		It("returns nothing when a unit has no state", func() {
			u := &statelessUnit{}
			e, err := env.New(cfg, 1, env.WithUnits(u))
			Expect(err).NotTo(HaveOccurred())

			img, err := e.Render(env.ModeRGBArray)
			Expect(err).NotTo(HaveOccurred())
			Expect(img).To(BeNil())
			Expect(u.inits).To(BeEmpty())
		})

		It("is idempotent and allows rendering again", func() {
			u := newTiltingUnit(0, 1)
			e, err := env.New(cfg, 1, env.WithUnits(u))
			Expect(err).NotTo(HaveOccurred())

			Expect(e.Close()).To(Succeed())
			_, err = e.Render(env.ModeRGBArray)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Close()).To(Succeed())
			Expect(e.Close()).To(Succeed())

			_, err = e.Render(env.ModeRGBArray)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.inits).To(Equal([]bool{true, true}))
		})
	})

	Describe("Restore", func() {
		BeforeEach(func() {
			cfg.Env.Carts = 2
		})

		It("places every cart and reports the restored failure", func() {
			e, err := env.New(cfg, 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(e.Restore(env.Observation{{0, 0, 0, 0}, {0, 0, 0.5, 0}})).To(Succeed())
			Expect(e.Done()).To(BeTrue())
			Expect(e.TerminalUnits()).To(Equal([]int{1}))

			_, _, _, _, err = e.Step(spaces.Action{0, 1})
			Expect(err).NotTo(HaveOccurred())
			_, ok := e.StepsBeyondDone()
			Expect(ok).To(BeTrue())

			Expect(e.Restore(env.Observation{{0, 0, 0, 0}, {0, 0, 0, 0}})).To(Succeed())
			Expect(e.Done()).To(BeFalse())
			_, ok = e.StepsBeyondDone()
			Expect(ok).To(BeFalse())
		})

		It("moves no cart when any slot is invalid", func() {
			e, err := env.New(cfg, 1)
			Expect(err).NotTo(HaveOccurred())

			err = e.Restore(env.Observation{{0, 0, 0.5, 0}, {math.NaN(), 0, 0, 0}})
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
			Expect(e.Done()).To(BeFalse())

			err = e.Restore(env.Observation{{0, 0, 0.5, 0}})
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(e.Done()).To(BeFalse())
		})

		It("rejects units that cannot be placed", func() {
			e, err := env.New(cfg, 1, env.WithUnits(newTiltingUnit(0, 1)))
			Expect(err).NotTo(HaveOccurred())

			err = e.Restore(env.Observation{{0, 0, 0, 0}})
			Expect(err).To(MatchError(env.ErrNotRestorable))
		})
	})
})
