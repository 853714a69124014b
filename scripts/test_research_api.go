package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, path, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout; a research run can take minutes
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func dataField(body []byte) map[string]interface{} {
	var envelope map[string]interface{}
	json.Unmarshal(body, &envelope)
	if data, ok := envelope["data"].(map[string]interface{}); ok {
		return data
	}
	return nil
}

func main() {
	// Empty token is fine when RESEARCH_API_SECRET is unset on the server.
	token := os.Getenv("RESEARCH_API_TOKEN")

	color.Cyan("🚀 Starting Research API Test\n")

	// 1. Estimate a basic run
	query := "What are the latest developments in solid-state batteries?"
	color.Yellow("\n1. Estimate Cost (basic mode)")
	resp, body, err := sendRequest("GET", "/research/estimate?mode=basic&query="+url.QueryEscape(query), token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var estimateResp map[string]interface{}
	json.Unmarshal(body, &estimateResp)
	prettyPrint(estimateResp)

	// 2. Start a basic research run
	color.Yellow("\n2. Start Research (basic mode)")
	startReq := map[string]interface{}{
		"query": query,
		"mode":  "basic",
	}
	resp, body, err = sendRequest("POST", "/research", token, startReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	var sessionID string
	if data := dataField(body); data != nil {
		if id, ok := data["session_id"].(string); ok {
			sessionID = id
			fmt.Printf("Session ID: %s\n", sessionID)
		}
	}
	if sessionID == "" {
		color.Red("No session_id returned; aborting")
		prettyPrint(json.RawMessage(body))
		os.Exit(1)
	}

	// 3. Poll the session until it reaches a terminal status
	color.Yellow("\n3. Poll Session Until Done")
	status := "RUNNING"
	deadline := time.Now().Add(5 * time.Minute)
	for status == "RUNNING" {
		if time.Now().After(deadline) {
			color.Red("Timed out waiting for session %s", sessionID)
			os.Exit(1)
		}
		time.Sleep(2 * time.Second)

		resp, body, err = sendRequest("GET", "/research/sessions/"+sessionID, token, nil)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		if data := dataField(body); data != nil {
			if s, ok := data["status"].(string); ok {
				status = s
			}
			fmt.Printf("  status=%s stage=%v\n", status, data["stage"])
		}
	}
	color.Green("Final status: %s (HTTP %s)", status, resp.Status)
	if data := dataField(body); data != nil {
		if result, ok := data["result"].(string); ok && result != "" {
			fmt.Printf("Result (first 300 chars): %.300s\n", result)
		}
		if clarification, ok := data["clarification"].(string); ok && clarification != "" {
			fmt.Printf("Clarification: %s\n", clarification)
		}
		fmt.Printf("Total cost: %v USD\n", data["total_cost_usd"])
	}

	// 4. List recent sessions
	color.Yellow("\n4. List Recent Sessions")
	resp, body, err = sendRequest("GET", "/research/sessions?limit=5", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var listResp map[string]interface{}
	json.Unmarshal(body, &listResp)
	prettyPrint(listResp)

	// 5. Daily cost rollup
	color.Yellow("\n5. Daily Cost Summary")
	resp, body, err = sendRequest("GET", "/research/costs/daily", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var costsResp map[string]interface{}
	json.Unmarshal(body, &costsResp)
	prettyPrint(costsResp)

	// 6. Scope a vague query
	color.Yellow("\n6. Scope a Vague Query")
	scopeReq := map[string]interface{}{
		"query": "Tell me about batteries",
	}
	resp, body, err = sendRequest("POST", "/research/scope", token, scopeReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	if data := dataField(body); data != nil {
		fmt.Printf("Clarification needed: %v\n", data["clarification_needed"])
		fmt.Printf("AI response: %v\n", data["ai_response"])
	}

	color.Cyan("\n✅ Test Sequence Complete")
}
