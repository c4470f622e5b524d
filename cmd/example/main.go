package main

import (
	"fmt"
	"log"
	"time"

	"skylinedb/pkg/client"
	"skylinedb/pkg/common"
)

func main() {
	fmt.Println("Connecting to skylinedb...")
	cli, err := client.Dial("localhost:9090")
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer cli.Close()

	points := []common.Point{
		{X: 33.82, Y: 25.82}, {X: 33.92, Y: 20.08}, {X: 34.36, Y: 19.77},
		{X: 36.6, Y: 19.0}, {X: 41.47, Y: 18.52}, {X: 38.0, Y: 22.0},
	}
	ids := make(map[common.Point]common.KeyType)
	start := time.Now()
	for _, p := range points {
		id, err := cli.Insert(p, []byte(p.String()))
		if err != nil {
			log.Fatalf("Insert failed: %v", err)
		}
		ids[p] = id
	}
	fmt.Printf("Inserted %d points in %v\n", len(points), time.Since(start))

	printSkyline(cli)

	// a point dominating (36.6, 19.0) and (34.36, 19.77)
	fmt.Println("Inserting (34, 19.0)...")
	if _, err := cli.Insert(common.Point{X: 34, Y: 19.0}, []byte("insert-test")); err != nil {
		log.Fatalf("Insert failed: %v", err)
	}
	printSkyline(cli)

	victim := common.Point{X: 33.92, Y: 20.08}
	fmt.Printf("Deleting %s...\n", victim)
	member, err := cli.Delete(ids[victim])
	if err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Was skyline member: %v\n", member)
	printSkyline(cli)
}

func printSkyline(cli *client.Client) {
	start := time.Now()
	sky, err := cli.Skyline()
	if err != nil {
		log.Fatalf("Skyline failed: %v", err)
	}
	fmt.Printf("Skyline (%d points, %v):\n", len(sky), time.Since(start))
	for _, e := range sky {
		fmt.Printf("  [%d] %s\n", e.ID, e.Point)
	}
}
