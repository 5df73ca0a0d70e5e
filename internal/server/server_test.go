package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ChicagoDave/feasibility/internal/config"
	"github.com/ChicagoDave/feasibility/internal/logging"
	"github.com/ChicagoDave/feasibility/pkg/sensitivity"
)

const exampleProject = "../../examples/midrise-mih"

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
	return out
}

var _ = Describe("Server", func() {
	var h http.Handler

	BeforeEach(func() {
		h = New(exampleProject, config.Default(), logging.NewTestLogger()).Handler()
	})

	Describe("request IDs", func() {
		It("assigns a new ID when none is sent", func() {
			rec := do(h, http.MethodGet, "/healthz", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
			Expect(err).NotTo(HaveOccurred())
		})

		It("echoes a valid incoming ID", func() {
			id := uuid.NewString()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(RequestIDHeader, id)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			Expect(rec.Header().Get(RequestIDHeader)).To(Equal(id))
		})
	})

	Describe("GET /api/project", func() {
		It("returns the project and its validation report", func() {
			rec := do(h, http.MethodGet, "/api/project", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := decode(rec)
			Expect(body).To(HaveKey("project"))
			Expect(body["validation"]).To(HaveKeyWithValue("valid", true))
		})

		It("returns 400 without a project directory", func() {
			h = New("", config.Default(), logr.Discard()).Handler()
			rec := do(h, http.MethodGet, "/api/project", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(rec)).To(HaveKey("requestId"))
		})

		It("returns 404 for a missing project", func() {
			h = New(os.TempDir()+"/no-such-project", config.Default(), logr.Discard()).Handler()
			rec := do(h, http.MethodGet, "/api/project", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /api/solve", func() {
		It("solves the server's project when the body is empty", func() {
			rec := do(h, http.MethodPost, "/api/solve", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			result := decode(rec)["result"].(map[string]any)
			Expect(result["totalUnits"]).To(BeNumerically("==", 75))
			Expect(result["feasible"]).To(BeTrue())
			Expect(result["solverMethod"]).To(Equal("heuristic"))
		})

		It("solves a project sent in the body", func() {
			rec := do(h, http.MethodPost, "/api/solve", `{
				"spec_version": "0.1.0",
				"inputs": {
					"netResidentialSF": 20000,
					"allowedUnitTypes": [{"type": "1BR", "minSF": 550, "maxSF": 650}],
					"rentAssumptions": [{"unitType": "1BR", "amiBand": 0, "monthlyRent": 2600}],
					"costAssumptions": {"hardCostPerSF": 400, "softCostPct": 0.25, "landCostPerSF": 150}
				}
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			result := decode(rec)["result"].(map[string]any)
			Expect(result["totalUnits"]).To(BeNumerically("==", 33))
			Expect(result["affordableUnits"]).To(BeNumerically("==", 0))
		})

		It("rejects an invalid project with its validation report", func() {
			rec := do(h, http.MethodPost, "/api/solve", `{"inputs": {"netResidentialSF": 0}}`)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			body := decode(rec)
			Expect(body["validation"]).To(HaveKeyWithValue("valid", false))
			Expect(body).NotTo(HaveKey("result"))
		})

		It("rejects malformed JSON", func() {
			rec := do(h, http.MethodPost, "/api/solve", `{"inputs":`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/evaluate", func() {
		It("evaluates explicit allocations", func() {
			rec := do(h, http.MethodPost, "/api/evaluate", `{
				"netResidentialSF": 6000,
				"programConstraints": [{"program": "P", "minAffordablePct": 0.2, "amiBands": [80], "minPctByBand": {"80": 1}}],
				"allocations": [
					{"unitType": "1BR", "amiBand": 0, "count": 8, "avgSF": 600},
					{"unitType": "1BR", "amiBand": 80, "count": 2, "avgSF": 600}
				]
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := decode(rec)
			Expect(body["feasible"]).To(BeTrue())
			allocs := body["allocations"].([]any)
			Expect(allocs[0].(map[string]any)["totalSF"]).To(BeNumerically("==", 4800))
			mix := body["mix"].(map[string]any)
			Expect(mix["counts"]).To(HaveKeyWithValue("one_bed", BeNumerically("==", 10)))
			Expect(mix["shares"]).To(HaveKeyWithValue("1BR", BeNumerically("==", 1)))
		})

		It("keeps the area of duplicate allocations with different sizes", func() {
			rec := do(h, http.MethodPost, "/api/evaluate", `{
				"netResidentialSF": 1700,
				"programConstraints": [],
				"allocations": [
					{"unitType": "1BR", "amiBand": 60, "count": 2, "avgSF": 500},
					{"unitType": "1BR", "amiBand": 60, "count": 1, "avgSF": 800}
				]
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := decode(rec)
			Expect(body["feasible"]).To(BeFalse())
			allocs := body["allocations"].([]any)
			Expect(allocs).To(HaveLen(1))
			Expect(allocs[0].(map[string]any)["totalSF"]).To(BeNumerically("~", 1800, 1e-9))
		})

		It("groups raw unit records", func() {
			rec := do(h, http.MethodPost, "/api/evaluate", `{
				"netResidentialSF": 1000,
				"programConstraints": [],
				"units": [
					{"bedroomType": "2 Bed", "allocation": "Market", "areaSf": 800},
					{"bedroomType": "Loft", "allocation": "Market", "areaSf": 900}
				]
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := decode(rec)
			Expect(body["skippedUnits"]).To(BeNumerically("==", 1))
			Expect(body["allocations"]).To(HaveLen(1))
		})

		It("requires allocations or units", func() {
			rec := do(h, http.MethodPost, "/api/evaluate", `{"netResidentialSF": 1000}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/merge", func() {
		It("merges stacked programs by maximum", func() {
			rec := do(h, http.MethodPost, "/api/merge", `{
				"programConstraints": [{"preset": "MIH Option 1"}, {"preset": "485-x Option B"}],
				"totalUnits": 75
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			merged := decode(rec)["merged"].(map[string]any)
			Expect(merged["maxAffordablePct"]).To(BeNumerically("~", 0.25, 1e-9))
			Expect(merged["mergedAffordableTarget"]).To(BeNumerically("==", 19))
		})

		It("reports stacking conflicts", func() {
			rec := do(h, http.MethodPost, "/api/merge", `{
				"programConstraints": [{"preset": "485-x Option A"}, {"preset": "421-a"}],
				"totalUnits": 40
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decode(rec)["validation"]).To(HaveKeyWithValue("valid", false))
		})

		It("rejects a negative unit count", func() {
			rec := do(h, http.MethodPost, "/api/merge", `{"programConstraints": [], "totalUnits": -1}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/sensitivity", func() {
		It("returns one row per scenario in order", func() {
			rec := do(h, http.MethodPost, "/api/sensitivity", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := decode(rec)
			rows := body["rows"].([]any)
			Expect(rows).To(HaveLen(len(sensitivity.Labels())))
			for i, label := range sensitivity.Labels() {
				Expect(rows[i].(map[string]any)["scenario"]).To(Equal(label))
			}
			Expect(body["summary"]).To(HaveKey("mostSensitive"))
		})
	})

	Describe("GET /metrics", func() {
		It("exposes request and solve counters", func() {
			do(h, http.MethodPost, "/api/solve", "")
			rec := do(h, http.MethodGet, "/metrics", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`feasibility_http_requests_total{code="200",route="POST /api/solve"} 1`))
			Expect(rec.Body.String()).To(ContainSubstring(`feasibility_solves_total{feasible="true"} 1`))
		})
	})
})
