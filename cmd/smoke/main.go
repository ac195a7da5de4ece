package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"ai-judge/internal/qa"
	"ai-judge/internal/schemas"
)

type runResp struct {
	QueueID string `json:"queueId"`
	TaskID  string `json:"taskId"`
}

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8000")

	baseFlag := flag.String("base", base, "API base URL (e.g., http://localhost:8000)")
	queue := flag.String("queue", fmt.Sprintf("smoke_%d", time.Now().Unix()), "Queue id for the sample batch")
	model := flag.String("model", envOr("LLM_MODEL", "gpt-4o-mini"), "Grading model for the smoke judge")
	waitRun := flag.Duration("wait", 60*time.Second, "How long to poll for the run to settle")
	judgeDirect := flag.Bool("judge-direct", false, "Call the judge model directly with OPENAI_API_KEY")
	flag.Parse()

	if *judgeDirect {
		judgeDirectly(*model)
		return
	}

	httpc := &http.Client{Timeout: 12 * time.Second}

	// 1) Create judge
	var judge schemas.Judge
	if err := sendJSON(httpc, http.MethodPost, *baseFlag+"/judges", schemas.JudgeInput{
		Name:          "Smoke Judge",
		GradingModel:  *model,
		GradingPrompt: `You grade answers. Reply with JSON {"verdict":"pass|fail|inconclusive","reasoning":"..."}.`,
		Active:        true,
	}, &judge); err != nil {
		fatalf("create judge: %v", err)
	}
	fmt.Printf("✅ Created judge: id=%s model=%s\n", judge.ID, judge.GradingModel)

	// 2) Upload submissions
	subs := []schemas.Submission{
		{
			ID: *queue + "_sub_1", QueueID: *queue, LabelingTaskID: "smoke_task", CreatedAt: time.Now().UnixMilli(),
			Questions: []schemas.Question{{Rev: 1, Data: schemas.QuestionData{ID: "q_sky", QuestionType: "single_choice_with_reasoning", QuestionText: "What colour is a clear daytime sky?"}}},
			Answers:   map[string]*schemas.Answer{"q_sky": {Choice: "blue", Reasoning: "Rayleigh scattering favours short wavelengths."}},
		},
		{
			ID: *queue + "_sub_2", QueueID: *queue, LabelingTaskID: "smoke_task", CreatedAt: time.Now().UnixMilli(),
			Questions: []schemas.Question{{Rev: 1, Data: schemas.QuestionData{ID: "q_sky", QuestionType: "single_choice_with_reasoning", QuestionText: "What colour is a clear daytime sky?"}}},
			Answers:   map[string]*schemas.Answer{"q_sky": {Choice: "green", Reasoning: "Grass reflects upward."}},
		},
	}
	if err := sendJSON(httpc, http.MethodPost, *baseFlag+"/submissions", subs, nil); err != nil {
		fatalf("upload submissions: %v", err)
	}
	fmt.Printf("✅ Uploaded %d submissions to queue %s\n", len(subs), *queue)

	// 3) Assign judge
	url := fmt.Sprintf("%s/queues/%s/assignments/q_sky", *baseFlag, *queue)
	if err := sendJSON(httpc, http.MethodPut, url, map[string]any{"judgeIds": []string{judge.ID}}, nil); err != nil {
		fatalf("assign judge: %v", err)
	}
	fmt.Println("✅ Assigned judge to q_sky")

	// 4) Enqueue run
	var run runResp
	if err := sendJSON(httpc, http.MethodPost, fmt.Sprintf("%s/queues/%s/runs", *baseFlag, *queue), nil, &run); err != nil {
		fatalf("enqueue run: %v", err)
	}
	fmt.Printf("✅ Enqueued run task=%s\n", run.TaskID)

	// 5) Poll progress
	deadline := time.Now().Add(*waitRun)
	var p schemas.Progress
	for {
		err := getJSON(httpc, fmt.Sprintf("%s/queues/%s/progress", *baseFlag, *queue), &p)
		if err == nil && p.Planned > 0 && p.Settled() {
			fmt.Printf("✅ Run settled: planned=%d done=%d failed=%d\n", p.Planned, p.Done, p.Failed)
			break
		}
		if time.Now().After(deadline) {
			fmt.Printf("ℹ️  Run not settled yet: %s (err=%v)\n", compactJSON(p), err)
			break
		}
		time.Sleep(2 * time.Second)
	}

	// 6) Results
	var out schemas.EvaluationsOut
	if err := getJSON(httpc, fmt.Sprintf("%s/evaluations?queue=%s", *baseFlag, *queue), &out); err != nil {
		fatalf("list evaluations: %v", err)
	}
	for _, e := range out.Evaluations {
		fmt.Printf("  %s / %s -> %s %s\n", e.SubmissionID, e.QuestionTemplateID, e.Verdict, e.Error)
	}
	fmt.Printf("🎉 Smoke run OK. evaluations=%d passRate=%.2f\n", out.Total, out.PassRate)
}

// --- helpers ---

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func sendJSON(c *http.Client, method, url string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, method, url, r)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s %s -> %d: %s", method, url, res.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func getJSON(c *http.Client, url string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("GET %s -> %d: %s", url, res.StatusCode, string(b))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func compactJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func fatalf(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}

// judgeDirectly grades one canned answer without the API or worker.
func judgeDirectly(model string) {
	fmt.Println("🧪 Calling the judge model directly...")

	inv := qa.NewInvoker(qa.Options{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}, zap.NewNop())
	res, err := inv.Invoke(context.Background(), qa.Request{
		JudgePrompt:  `Reply with JSON {"verdict":"pass|fail|inconclusive","reasoning":"..."}. Pass only correct answers.`,
		QuestionText: "What is 2 + 2?",
		Answer:       `{"freeForm":"4"}`,
		Model:        model,
	})
	if err != nil {
		fatalf("judge failed: %v", err)
	}

	fmt.Printf("\n📊 Verdict: %s (%dms)\n", res.Verdict, res.LatencyMS)
	fmt.Printf("  📝 Reasoning: %s\n", res.Reasoning)
}
