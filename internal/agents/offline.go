package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spboyer/crucible/internal/execution"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
)

var iterationPattern = regexp.MustCompile(`(?m)^Iteration: (\d+)$`)

// ScriptOffline scripts a MockEngine so a full session can run without a
// model: the primary writes a small analysis or three ideas, and the
// synthesizer scores every criterion 6.0 on the first iteration of a phase,
// rising by 1.5 per iteration up to 9.5.
func ScriptOffline(engine *execution.MockEngine, criteria map[models.Mode][]projectconfig.Criterion) *execution.MockEngine {
	var names []string
	seen := map[string]bool{}
	for _, mode := range []models.Mode{models.ModeAnalysis, models.ModeIdeas} {
		for _, c := range criteria[mode] {
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}

	return engine.
		On(RolePrimary, func(req *execution.ExecutionRequest, call int) (string, error) {
			iteration := iterationOf(req.Message)
			if strings.Contains(req.Message, ideasInstruction) {
				return offlineIdeas(iteration), nil
			}
			return fmt.Sprintf("# Analysis (draft %d)\n\nThe market shows steady demand, supported by public data and competitor activity. "+
				"Key risks are regulation and customer acquisition cost.\n", iteration), nil
		}).
		On(RoleCritic, func(req *execution.ExecutionRequest, call int) (string, error) {
			return "Evidence is thin in places and some claims need sources.", nil
		}).
		On(RoleAdversary, func(req *execution.ExecutionRequest, call int) (string, error) {
			return "VC: the moat is unclear. Engineer: the build estimate is optimistic.", nil
		}).
		On(RoleSynthesizer, func(req *execution.ExecutionRequest, call int) (string, error) {
			score := min(6.0+1.5*float64(iterationOf(req.Message)-1), 9.5)
			scores := make(map[string]CriterionAssessment, len(names))
			for _, n := range names {
				scores[n] = CriterionAssessment{Score: score, Rationale: "offline estimate"}
			}
			out, err := json.Marshal(Synthesis{
				Summary: fmt.Sprintf("Offline assessment at %.1f", score),
				Scores:  scores,
			})
			return string(out), err
		})
}

func iterationOf(message string) int {
	m := iterationPattern.FindStringSubmatch(message)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func offlineIdeas(iteration int) string {
	return fmt.Sprintf(`# Ideas (draft %d)

## 1. Compliance copilot for clinics
**Target Market:** independent medical clinics with fewer than fifty staff
**Business Model:** monthly subscription per practitioner seat
**Technology:** document classification and audit trail service

## 2. Farm equipment rental marketplace
**Target Market:** smallholder farmers sharing seasonal machinery
**Business Model:** commission on every completed rental booking
**Technology:** mobile booking app with offline sync and GPS tracking

## 3. Energy usage coach for landlords
**Target Market:** landlords managing older rental apartment buildings
**Business Model:** savings share on reduced utility bills
**Technology:** smart meter ingestion with anomaly detection models
`, iteration)
}
