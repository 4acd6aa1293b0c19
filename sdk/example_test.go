package codetube_test

import (
	"context"
	"fmt"
	"log"
	"time"

	codetube "github.com/codetube/codetube/sdk"
)

func Example_basicUsage() {
	ctx := context.Background()
	client := codetube.New("http://localhost:8080", "your-api-token")

	// --- Run synchronously ---
	res, err := client.Code.Run(ctx, codetube.RunRequest{
		SourceCode: "print('hello')",
		LanguageID: 71, // Python 3
	}, &codetube.RunOptions{Sync: true})
	if err != nil {
		log.Fatal(err)
	}
	if res.Accepted {
		fmt.Print(*res.Result.Stdout)
	} else {
		// Compile errors and crashes are results, not errors.
		fmt.Println("program failed:", res.ErrorOutput)
	}
}

func Example_queued() {
	ctx := context.Background()
	client := codetube.New("http://localhost:8080", "your-api-token")

	// --- Queue a run (async, returns a job ID) ---
	queued, err := client.Code.Run(ctx, codetube.RunRequest{
		SourceCode: "#include <stdio.h>\nint main(){puts(\"hi\");}",
		LanguageID: 50, // C (GCC)
	}, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Job ID:", queued.JobID)

	// --- Wait for the stored result ---
	exec, err := client.Code.Wait(ctx, queued.JobID, time.Second)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Status:", exec.Result.Status.Description)
}
