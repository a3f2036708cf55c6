package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/halcyonlabs/vitalflow"
)

func main() {
	flow, err := vitalflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(a vitalflow.Alert) {
		fmt.Printf("%s [%s/%s] %s\n",
			a.CreatedAt.Format(time.RFC3339Nano),
			a.Type,
			a.Severity,
			a.Message,
		)
	}

	if err := flow.Run(ctx, vitalflow.StreamOutCallback(callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
