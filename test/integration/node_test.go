//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/fxnlabs/matrix-node/internal/config"
	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/fxnlabs/matrix-node/internal/node"
	"github.com/fxnlabs/matrix-node/pkg/matrixclient"
)

func randomMatrix(rng *rand.Rand, rows, cols int) *matrix.Matrix {
	m := matrix.Filled(rows, cols, 0)
	for i := range m.Data {
		m.Data[i] = rng.Float32()
	}
	return m
}

func encode(m *matrix.Matrix) []byte {
	data, err := matrix.EncodeBytes(matrix.Named{Name: "arr_0", Matrix: m})
	Expect(err).NotTo(HaveOccurred())
	return data
}

var _ = Describe("Matrix node", Ordered, func() {
	var (
		app     *fxtest.App
		client  *matrixclient.Client
		baseURL string
		rng     *rand.Rand
	)

	BeforeAll(func() {
		cfg := config.Default()
		cfg.Node.ListenAddress = "127.0.0.1"
		cfg.Node.ListenPort = 0
		cfg.Logger.Verbosity = "error"
		cfg.GPU.Backend = "cpu"
		cfg.Engine.VerifyResults = true
		cfg.Inventory.Command = "matrix-node-missing-smi"

		var srv *node.Server
		app = fxtest.New(GinkgoT(), node.Options(cfg), fx.Populate(&srv))
		app.RequireStart()
		DeferCleanup(app.RequireStop)

		baseURL = fmt.Sprintf("http://%s", srv.Addr())
		client = matrixclient.New(baseURL, nil)
		rng = rand.New(rand.NewSource(7))
	})

	It("reports healthy", func() {
		status, err := client.Health(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal("ok"))
	})

	DescribeTable("adds matrices of matching shape",
		func(rows, cols int) {
			a, b := randomMatrix(rng, rows, cols), randomMatrix(rng, rows, cols)
			res, err := client.Add(context.Background(),
				"a.npz", bytes.NewReader(encode(a)), "b.npz", bytes.NewReader(encode(b)))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.MatrixShape).To(Equal([]int{rows, cols}))
			Expect(res.Device).To(Equal("CPU"))
			Expect(res.ElapsedTime).To(BeNumerically(">=", 0))
		},
		Entry("100x100", 100, 100),
		Entry("512x512", 512, 512),
		Entry("odd sized", 17, 33),
		Entry("single row", 1, 1000),
	)

	It("rejects mismatched shapes", func() {
		a, b := randomMatrix(rng, 100, 100), randomMatrix(rng, 50, 50)
		_, err := client.Add(context.Background(),
			"a.npz", bytes.NewReader(encode(a)), "b.npz", bytes.NewReader(encode(b)))

		var apiErr *matrixclient.APIError
		Expect(err).To(BeAssignableToTypeOf(apiErr))
		apiErr = err.(*matrixclient.APIError)
		Expect(apiErr.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(apiErr.Detail).To(Equal("Matrix shapes do not match: (100, 100) vs (50, 50)"))
	})

	It("rejects payloads that are not npz archives", func() {
		_, err := client.Add(context.Background(),
			"a.npz", bytes.NewReader([]byte("not a zip")), "b.npz", bytes.NewReader(encode(randomMatrix(rng, 2, 2))))

		var apiErr *matrixclient.APIError
		Expect(err).To(BeAssignableToTypeOf(apiErr))
		apiErr = err.(*matrixclient.APIError)
		Expect(apiErr.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(apiErr.Detail).To(HavePrefix("Error processing matrices:"))
	})

	It("answers GET /add with 405", func() {
		resp, err := http.Get(baseURL + "/add")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
	})

	It("reports a missing query tool on /gpu-info", func() {
		_, err := client.GPUInfo(context.Background())

		var apiErr *matrixclient.APIError
		Expect(err).To(BeAssignableToTypeOf(apiErr))
		apiErr = err.(*matrixclient.APIError)
		Expect(apiErr.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(apiErr.Detail).To(Equal("matrix-node-missing-smi not found. Is NVIDIA driver installed?"))
	})

	It("exposes request metrics", func() {
		resp, err := http.Get(baseURL + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`endpoint="/add"`))
		Expect(string(body)).To(ContainSubstring(`gpu_query_failures_total{kind="tool_not_found"}`))
	})
})
