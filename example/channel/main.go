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

	notifier, alerts, closeAlerts := vitalflow.NewChannelNotifier(32)
	defer closeAlerts()

	go fanoutWorker("alerts", alerts)

	if err := flow.Run(ctx, vitalflow.StreamOutNotifier(notifier)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, alerts <-chan vitalflow.Alert) {
	for a := range alerts {
		fmt.Printf("[%s] %s %s/%s %s\n", name, time.Now().Format(time.RFC3339), a.Type, a.Severity, a.Message)
	}
}
