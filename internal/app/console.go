package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/serve_sense/internal/config"
	"github.com/relabs-tech/serve_sense/internal/packet"
)

// RunConsole subscribes to the device topics and prints state transitions,
// classification results, and decoded stream packets to the terminal.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to recording state
	stateToken := client.Subscribe(cfg.TopicState, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		if len(payload) != 1 {
			log.Printf("console: bad state payload (%d bytes)", len(payload))
			return
		}
		if payload[0] == 1 {
			fmt.Println("[STATE] recording")
		} else {
			fmt.Println("[STATE] idle")
		}
	})
	stateToken.Wait()
	if stateToken.Error() != nil {
		return stateToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicState)

	// Subscribe to classification results
	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fmt.Printf("[RESULT] %s\n", msg.Payload())
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicResult)

	// Subscribe to the sample stream
	streamToken := client.Subscribe(cfg.TopicStream, 0, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := packet.Decode(msg.Payload())
		if err != nil {
			log.Printf("console: %v", err)
			return
		}
		marker := ""
		if p.Marker() {
			marker = "  MARK"
		}
		fmt.Printf(
			"[IMU ] t=%8dms s=%3d #%5d  ax=%7.3f ay=%7.3f az=%7.3f  gx=%8.2f gy=%8.2f gz=%8.2f%s\n",
			p.Millis, p.Session, p.Sequence,
			p.Sample.Ax, p.Sample.Ay, p.Sample.Az,
			p.Sample.Gx, p.Sample.Gy, p.Sample.Gz,
			marker,
		)
	})
	streamToken.Wait()
	if streamToken.Error() != nil {
		return streamToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStream)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
