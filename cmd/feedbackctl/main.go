package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/akiharsha/ai-assistant-chatbot/internal/api"
	"github.com/akiharsha/ai-assistant-chatbot/internal/engine"
	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

const usage = `usage: feedbackctl [-addr host:port] <command> [flags]

commands:
  submit    submit one feedback record
  report    print the analytics report as JSON
  charts    print the rating and language charts
  areas     print the weakest quality dimensions
  issues    print the most common issues
  list      list stored feedback
`

func main() {
	global := flag.NewFlagSet("feedbackctl", flag.ExitOnError)
	addr := global.String("addr", "localhost:50051", "Feedback engine gRPC address")
	timeout := global.Duration("timeout", 10*time.Second, "Request timeout")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fail(err)
	}
	defer conn.Close()
	client := api.NewFeedbackClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cmd, args := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "submit":
		err = runSubmit(ctx, client, args)
	case "report":
		var report models.Report
		if report, err = client.GenerateReport(ctx); err == nil {
			err = printJSON(report)
		}
	case "charts":
		var report models.Report
		if report, err = client.GenerateReport(ctx); err == nil {
			fmt.Print(engine.RenderRatingDistribution(report))
			fmt.Println()
			fmt.Print(engine.RenderLanguagePerformance(report))
		}
	case "areas":
		err = runAreas(ctx, client, args)
	case "issues":
		err = runIssues(ctx, client, args)
	case "list":
		err = runList(ctx, client, args)
	default:
		global.Usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func runSubmit(ctx context.Context, client *api.FeedbackClient, args []string) error {
	in := models.DefaultInput()
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	fs.StringVar(&in.UserID, "user", "", "User id")
	fs.IntVar(&in.Rating, "rating", 0, "Overall rating 1-5")
	language := fs.String("language", "", "Hindi, Telugu, English or Mixed")
	interaction := fs.String("type", "", "translation, learning, general or cultural")
	fs.StringVar(&in.Comments, "comments", "", "Free-text comments")
	fs.IntVar(&in.ResponseQuality, "quality", in.ResponseQuality, "Response quality 1-5")
	fs.IntVar(&in.CulturalSensitivity, "cultural", in.CulturalSensitivity, "Cultural sensitivity 1-5")
	fs.IntVar(&in.LanguageAccuracy, "accuracy", in.LanguageAccuracy, "Language accuracy 1-5")
	fs.IntVar(&in.Helpfulness, "helpfulness", in.Helpfulness, "Helpfulness 1-5")
	fs.IntVar(&in.ResponseSpeed, "speed", in.ResponseSpeed, "Response speed 1-5")
	fs.IntVar(&in.UserSatisfaction, "satisfaction", in.UserSatisfaction, "User satisfaction 1-5")
	fs.BoolVar(&in.WouldRecommend, "recommend", in.WouldRecommend, "Would recommend")
	fs.StringVar(&in.ImprovementSuggestions, "suggestions", "", "Improvement suggestions")
	fs.StringVar(&in.TechnicalIssues, "issues", "", "Technical issues")
	_ = fs.Parse(args)
	in.Language = models.Language(*language)
	in.InteractionType = models.InteractionType(*interaction)

	result, err := client.SubmitFeedback(ctx, in)
	if err != nil {
		return err
	}
	if result.Warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", result.Warning)
	}
	return printJSON(result.Feedback)
}

func runAreas(ctx context.Context, client *api.FeedbackClient, args []string) error {
	fs := flag.NewFlagSet("areas", flag.ExitOnError)
	threshold := fs.Float64("threshold", 0, "Mean below which a dimension needs work; 0 uses the server default")
	topN := fs.Int("top", 0, "Dimensions to consider; 0 uses the server default")
	_ = fs.Parse(args)

	areas, err := client.ImprovementAreas(ctx, *threshold, *topN)
	if err != nil {
		return err
	}
	for _, d := range areas {
		fmt.Println(d.Label())
	}
	return nil
}

func runIssues(ctx context.Context, client *api.FeedbackClient, args []string) error {
	fs := flag.NewFlagSet("issues", flag.ExitOnError)
	topN := fs.Int("top", 0, "Issues to print; 0 uses the server default")
	_ = fs.Parse(args)

	issues, err := client.CommonIssues(ctx, *topN)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Println(issue)
	}
	return nil
}

func runList(ctx context.Context, client *api.FeedbackClient, args []string) error {
	var req api.ListRequest
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.StringVar(&req.UserID, "user", "", "Only this user")
	language := fs.String("language", "", "Only this language")
	interaction := fs.String("type", "", "Only this interaction type")
	fs.IntVar(&req.SinceDays, "since-days", 0, "Only the last N days")
	_ = fs.Parse(args)
	req.Language = models.Language(*language)
	req.InteractionType = models.InteractionType(*interaction)

	records, err := client.ListFeedback(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(records)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "feedbackctl: %v\n", err)
	os.Exit(1)
}
