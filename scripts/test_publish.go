// +build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type PermitImportEvent struct {
	JobID    uuid.UUID       `json:"job_id"`
	Township string          `json:"township"`
	Truncate bool            `json:"truncate,omitempty"`
	Path     string          `json:"path,omitempty"`
	Features json.RawMessage `json:"features,omitempty"`
}

// Тестовый регион Cary (Rezoning Case)
const sampleFeatures = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {
      "ProjectName": "Test Plaza",
      "Comments": "Published by test_publish",
      "Type": "Rezoning Case",
      "ID": "TEST-1",
      "Link": "https://example.org/test-1"
    },
    "geometry": {
      "type": "Polygon",
      "coordinates": [[[-78.80, 35.78], [-78.79, 35.78], [-78.79, 35.79], [-78.80, 35.79], [-78.80, 35.78]]]
    }
  }]
}`

func main() {
	redisAddr := flag.String("redis", "localhost:6380", "Redis address for streams")
	town := flag.String("town", "cary", "Township of the features")
	path := flag.String("path", "", "GeoJSON file path relative to the worker IMPORT_DIR (inline sample when empty)")
	truncate := flag.Bool("truncate", false, "Truncate permits before import")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	// Проверка подключения
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	event := PermitImportEvent{
		JobID:    uuid.New(),
		Township: *town,
		Truncate: *truncate,
		Path:     *path,
	}
	if *path == "" {
		event.Features = json.RawMessage(sampleFeatures)
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// Публикация в стрим
	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: "stream:permit:import",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("✅ Event published successfully!\n")
	fmt.Printf("   Stream: stream:permit:import\n")
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Job ID: %s\n", event.JobID)
	fmt.Printf("   Township: %s\n", event.Township)

	// Ожидание ответа
	fmt.Printf("\n⏳ Waiting for response in stream:permit:import:done...\n")

	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			fmt.Println("❌ Timeout waiting for response")
			os.Exit(1)
		case <-ticker.C:
			results, err := client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{"stream:permit:import:done", "0"},
				Count:   10,
				Block:   -1,
			}).Result()

			if err != nil && err != redis.Nil {
				continue
			}

			for _, stream := range results {
				for _, msg := range stream.Messages {
					dataStr, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}

					var response map[string]interface{}
					if err := json.Unmarshal([]byte(dataStr), &response); err != nil {
						continue
					}

					if jobID, ok := response["job_id"].(string); ok && jobID == event.JobID.String() {
						fmt.Printf("\n✅ Response received!\n")
						prettyJSON, _ := json.MarshalIndent(response, "", "  ")
						fmt.Printf("%s\n", prettyJSON)
						return
					}
				}
			}
		}
	}
}
