package dataset_test

import (
	"context"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TimFelixBeyer/NeuralODE/internal/dataset"
	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/oscillator"
)

// lineField is one-dimensional, which the builder must refuse.
type lineField struct{}

func (lineField) Dim() int { return 1 }
func (lineField) Eval(t float64, y dynamics.State) dynamics.State {
	return dynamics.State{-y[0]}
}

var _ = Describe("Build", func() {
	var (
		msd *oscillator.MassSpringDamper
		cfg dataset.Config
	)

	BeforeEach(func() {
		msd = oscillator.NewMassSpringDamper()
		cfg = dataset.Config{Series: 6, Samples: 11, Dt: 0.01, Seed: 42}
	})

	It("produces the configured shape", func() {
		set, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.TrainX).To(HaveLen(cfg.Series))
		Expect(set.TrainY).To(HaveLen(cfg.Series))
		Expect(set.ValX).To(HaveLen(2))
		Expect(set.ValY).To(HaveLen(2))
		Expect(set.TrainX[0]).To(HaveLen(cfg.Samples))
		Expect(set.TrainX[0][0]).To(HaveLen(2))
		Expect(set.Validate()).To(Succeed())
		Expect(set.Samples()).To(Equal(cfg.Samples))
	})

	It("is deterministic under a fixed seed", func() {
		a, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).NotTo(HaveOccurred())
		b, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.TrainX).To(Equal(b.TrainX))
		Expect(a.TrainY).To(Equal(b.TrainY))

		cfg.Seed = 43
		c, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.TrainX[0][0][0]).NotTo(Equal(a.TrainX[0][0][0]))
	})

	It("splits initial positions into the two regimes", func() {
		set, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < cfg.Series/2; i++ {
			x0 := set.TrainX[i][0]
			Expect(x0[0]).To(And(BeNumerically(">=", 0), BeNumerically("<", 1)))
			Expect(x0[1]).To(BeZero())
		}
		for i := cfg.Series / 2; i < cfg.Series; i++ {
			x0 := set.TrainX[i][0]
			Expect(x0[0]).To(And(BeNumerically(">=", math.Pi-1), BeNumerically("<", math.Pi)))
			Expect(x0[1]).To(BeZero())
		}
	})

	It("pairs every state with the field derivative", func() {
		set, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).NotTo(HaveOccurred())
		for i := range set.TrainX {
			for j := range set.TrainX[i] {
				Expect(set.TrainY[i][j]).To(Equal(msd.Eval(0, set.TrainX[i][j])))
			}
		}
	})

	It("pins the validation initial conditions", func() {
		set, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.ValX[0][0]).To(Equal(dataset.ValExtrap))
		Expect(set.ValX[1][0]).To(Equal(dataset.ValInterp))
	})

	It("refuses fields that are not planar", func() {
		_, err := dataset.Build(context.Background(), lineField{}, cfg)
		Expect(err).To(MatchError(dynamics.ErrDimension))
	})

	It("refuses a degenerate config", func() {
		cfg.Series = 1
		_, err := dataset.Build(context.Background(), msd, cfg)
		Expect(err).To(HaveOccurred())
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := dataset.Build(ctx, msd, cfg)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Store", func() {
	var (
		dir string
		set *dataset.Set
	)

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), "msd")
		cfg := dataset.Config{Series: 4, Samples: 9, Dt: 0.01, Seed: 7}
		var err error
		set, err = dataset.Build(context.Background(), oscillator.NewMassSpringDamper(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(dataset.Save(dir, set)).To(Succeed())
	})

	It("round-trips through disk modulo float32", func() {
		loaded, err := dataset.Load(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.TrainX).To(HaveLen(len(set.TrainX)))
		Expect(loaded.ValX).To(HaveLen(len(set.ValX)))
		for i := range set.TrainX {
			for j := range set.TrainX[i] {
				for k := range set.TrainX[i][j] {
					Expect(loaded.TrainX[i][j][k]).To(Equal(float64(float32(set.TrainX[i][j][k]))))
					Expect(loaded.TrainY[i][j][k]).To(Equal(float64(float32(set.TrainY[i][j][k]))))
				}
			}
		}
		Expect(loaded.Dt).To(Equal(set.Dt))
		Expect(loaded.Seed).To(Equal(set.Seed))
	})

	It("rejects truncated blobs", func() {
		path := filepath.Join(dir, "train_x.f32")
		raw, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(path, raw[:len(raw)-4], 0644)).To(Succeed())

		_, err = dataset.Load(dir)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("metadata requires"))
	})

	It("rejects an unsupported version", func() {
		path := filepath.Join(dir, "meta.json")
		Expect(os.WriteFile(path, []byte(`{"version": 99}`), 0644)).To(Succeed())

		_, err := dataset.Load(dir)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported version"))
	})
})
