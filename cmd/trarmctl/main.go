// Command trarmctl is a small interactive client for transrecsrv's
// parameter bus: connect, print state, and drive a handful of operations
// from the command line rather than a full GUI.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/theckman/yacspin"
)

func usage() {
	str := `trarmctl talks to a running transrecsrv over HTTP.

Usage:
	trarmctl <addr> <command> [args...]

Commands:
	status                 print the full /status snapshot
	arm <0|1|2>             write ARM_REQUEST (0=Disarm, 1=PostTrigger, 2=PrePostTrigger)
	watch                   poll ARM_STATE with a spinner until it leaves Busy
	set <DESIRED_NAME> <v>  POST {"f64": v} to DESIRED_NAME
	get <NAME>              GET NAME and print its value`
	fmt.Println(str)
}

type statusPayload struct {
	ArmState            string  `json:"arm_state"`
	EffectiveSampleRate float64 `json:"effective_sample_rate"`
	DigitizerName       string  `json:"digitizer_name"`
	SleepAfterBurst     float64 `json:"sleep_after_burst"`
	BurstID             int     `json:"burst_id"`
	TBurst              float64 `json:"t_burst"`
	TRead               float64 `json:"t_read"`
	TProcess            float64 `json:"t_process"`
}

func colorForState(s string) *color.Color {
	switch s {
	case "Disarm":
		return color.New(color.FgWhite)
	case "PostTrigger", "PrePostTrigger":
		return color.New(color.FgGreen)
	case "Busy":
		return color.New(color.FgYellow)
	case "Error":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

func getStatus(addr string) (statusPayload, error) {
	var sp statusPayload
	resp, err := http.Get(addr + "/status")
	if err != nil {
		return sp, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&sp); err != nil {
		return sp, err
	}
	return sp, nil
}

func cmdStatus(addr string) {
	sp, err := getStatus(addr)
	if err != nil {
		log.Fatal(err)
	}
	colorForState(sp.ArmState).Printf("ARM_STATE  %s\n", sp.ArmState)
	fmt.Printf("EFFECTIVE_SAMPLE_RATE  %g\n", sp.EffectiveSampleRate)
	fmt.Printf("DIGITIZER_NAME         %s\n", sp.DigitizerName)
	fmt.Printf("SLEEP_AFTER_BURST      %g\n", sp.SleepAfterBurst)
	fmt.Printf("BURST_ID               %d\n", sp.BurstID)
	fmt.Printf("BURST_TIME_BURST       %g\n", sp.TBurst)
	fmt.Printf("BURST_TIME_READ        %g\n", sp.TRead)
	fmt.Printf("BURST_TIME_PROCESS     %g\n", sp.TProcess)
}

func cmdArm(addr string, state int) {
	body, _ := json.Marshal(map[string]int{"state": state})
	resp, err := http.Post(addr+"/ARM_REQUEST", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("arm request rejected: %s", resp.Status)
	}
	fmt.Println("arm request accepted")
}

func cmdWatch(addr string) {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " waiting for ARM_STATE to leave Busy",
		SuffixAutoColon: true,
	}
	spinner, err := yacspin.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := spinner.Start(); err != nil {
		log.Fatal(err)
	}

	for {
		sp, err := getStatus(addr)
		if err != nil {
			spinner.StopFailMessage(err.Error())
			spinner.StopFail()
			return
		}
		if sp.ArmState != "Busy" {
			spinner.StopMessage(fmt.Sprintf("ARM_STATE is now %s", sp.ArmState))
			spinner.Stop()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func cmdSet(addr, name, value string) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatal(err)
	}
	body, _ := json.Marshal(map[string]float64{"f64": v})
	resp, err := http.Post(addr+"/"+name, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("write rejected: %s", resp.Status)
	}
	fmt.Println("ok")
}

func cmdGet(addr, name string) {
	resp, err := http.Get(addr + "/" + name)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		log.Fatal(err)
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	fmt.Fprintf(w, "%v\n", raw)
}

func main() {
	args := os.Args
	if len(args) < 3 {
		usage()
		return
	}
	addr, cmd := args[1], args[2]

	switch cmd {
	case "status":
		cmdStatus(addr)
	case "arm":
		if len(args) < 4 {
			usage()
			return
		}
		state, err := strconv.Atoi(args[3])
		if err != nil {
			log.Fatal(err)
		}
		cmdArm(addr, state)
	case "watch":
		cmdWatch(addr)
	case "set":
		if len(args) < 5 {
			usage()
			return
		}
		cmdSet(addr, args[3], args[4])
	case "get":
		if len(args) < 4 {
			usage()
			return
		}
		cmdGet(addr, args[3])
	default:
		usage()
	}
}
