package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"skylinedb/pkg/common"
	"skylinedb/pkg/config"
	"skylinedb/pkg/core"
	"skylinedb/pkg/protocol"
	"skylinedb/pkg/rtree"
	"skylinedb/pkg/skyline"
)

func main() {
	nPoints := flag.Int("points", 100000, "Points loaded before the maintenance run")
	nOps := flag.Int("ops", 2000, "Insert/delete operations per run")
	seed := flag.Int64("seed", 1, "Random seed")
	remote := flag.Bool("remote", false, "Benchmark a running server over HTTP and TCP instead")
	httpAddr := flag.String("http", "http://localhost:8080", "HTTP API base URL")
	tcpAddr := flag.String("tcp", "localhost:9090", "TCP server address")
	flag.Parse()
	if *nOps < 1 {
		*nOps = 1
	}

	if *remote {
		runRemote(*httpAddr, *tcpAddr, *nOps)
		return
	}
	runLocal(*nPoints, *nOps, *seed)
}

func randomPoint(rng *rand.Rand) common.Point {
	return common.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
}

// runLocal compares incremental maintenance against recomputing the
// skyline after every operation.
func runLocal(nPoints, nOps int, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	entries := make([]common.Entry, nPoints)
	for i := range entries {
		entries[i] = common.Entry{ID: common.KeyType(i + 1), Point: randomPoint(rng)}
	}

	fmt.Printf("skylinedb Maintenance Benchmark (points=%d ops=%d)\n", nPoints, nOps)
	fmt.Println("---------------------------------------------------")

	start := time.Now()
	tree := rtree.Load(rtree.DefaultMaxChildren, entries)
	fmt.Printf(">> Bulk load: %v (height %d)\n", time.Since(start), tree.Height())

	start = time.Now()
	sky, st := skyline.ComputeWithStats(tree.Root())
	fmt.Printf(">> Initial BBS: %v | skyline=%d nodes=%d pruned=%d\n\n",
		time.Since(start), len(sky), st.NodesExpanded, st.Pruned)

	cfg := config.Default()
	store := core.NewSkylineStore(cfg, zerolog.Nop())
	if err := store.Load(entries); err != nil {
		log.Fatalf("load failed: %v", err)
	}

	live := make([]common.KeyType, nPoints)
	for i := range live {
		live[i] = common.KeyType(i + 1)
	}
	ops := make([]bool, nOps) // true = insert
	pts := make([]common.Point, nOps)
	for i := range ops {
		ops[i] = rng.Intn(2) == 0
		pts[i] = randomPoint(rng)
	}

	fmt.Println(">> Incremental maintenance...")
	var incremental time.Duration
	var recompute time.Duration
	for i, insert := range ops {
		t0 := time.Now()
		if insert || len(live) == 0 {
			e, err := store.Insert(pts[i], nil)
			if err != nil {
				log.Fatalf("insert failed: %v", err)
			}
			live = append(live, e.ID)
		} else {
			j := rng.Intn(len(live))
			if _, err := store.Delete(live[j]); err != nil {
				log.Fatalf("delete failed: %v", err)
			}
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		incremental += time.Since(t0)

		t0 = time.Now()
		store.Recompute()
		recompute += time.Since(t0)
	}

	fmt.Printf("   Incremental: %v total | %v/op\n", incremental, incremental/time.Duration(nOps))
	fmt.Printf("   Recompute  : %v total | %v/op\n", recompute, recompute/time.Duration(nOps))
	fmt.Println("---------------------------------------------------")
	fmt.Printf("Conclusion: incremental maintenance is %.2fx faster than recomputation\n",
		recompute.Seconds()/incremental.Seconds())
}

func runRemote(httpAddr, tcpAddr string, n int) {
	fmt.Printf("skylinedb Protocol Benchmark (N=%d)\n", n)
	fmt.Printf("  HTTP=%s  TCP=%s\n", httpAddr, tcpAddr)
	fmt.Println("---------------------------------------------------")

	fmt.Println(">> Starting HTTP Benchmark (JSON over HTTP 1.1)...")
	httpDuration := runHTTPBenchmark(httpAddr, n)
	fmt.Printf("   HTTP Time: %v | QPS: %.0f\n\n", httpDuration, float64(n)/httpDuration.Seconds())

	fmt.Println(">> Starting TCP Benchmark (Binary Protocol)...")
	tcpDuration := runTCPBenchmark(tcpAddr, n)
	fmt.Printf("   TCP  Time: %v | QPS: %.0f\n", tcpDuration, float64(n)/tcpDuration.Seconds())

	fmt.Println("---------------------------------------------------")
	speedup := httpDuration.Seconds() / tcpDuration.Seconds()
	fmt.Printf("Conclusion: TCP is %.2fx faster than HTTP!\n", speedup)
}

func runHTTPBenchmark(httpAddr string, n int) time.Duration {
	rng := rand.New(rand.NewSource(2))
	start := time.Now()
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 100,
		},
	}

	for i := 0; i < n; i++ {
		p := randomPoint(rng)
		data := map[string]interface{}{
			"x":     p.X,
			"y":     p.Y,
			"value": "bench_data",
		}
		jsonData, _ := json.Marshal(data)

		resp, err := client.Post(httpAddr+"/api/insert", "application/json", bytes.NewReader(jsonData))
		if err != nil {
			log.Fatalf("HTTP Req failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return time.Since(start)
}

func runTCPBenchmark(addr string, n int) time.Duration {
	rng := rand.New(rand.NewSource(3))
	start := time.Now()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("TCP Connect failed: %v", err)
	}
	defer conn.Close()

	val := []byte("bench_data")

	for i := 0; i < n; i++ {
		err := protocol.Encode(conn, protocol.OpInsert, nil, protocol.EncodeInsert(randomPoint(rng), val))
		if err != nil {
			log.Fatalf("TCP Write failed: %v", err)
		}

		_, err = protocol.Decode(conn)
		if err != nil {
			log.Fatalf("TCP Read failed: %v", err)
		}
	}

	return time.Since(start)
}
