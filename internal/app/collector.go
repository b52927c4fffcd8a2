// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/serve_sense/internal/config"
	"github.com/relabs-tech/serve_sense/internal/imu"
	"github.com/relabs-tech/serve_sense/internal/packet"
	"github.com/relabs-tech/serve_sense/internal/store"
)

// RunCollector records the device's sample stream and classification
// results on the host: every decoded packet goes to a per-run CSV file and
// to the SQLite database. With COLLECTOR_SERIAL_PORT set it reads the
// device's CSV serial feed instead of subscribing to MQTT.
func RunCollector() error {
	cfg := config.Get()

	db, err := store.Open(cfg.CollectorDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := store.NewCSVRecorder(cfg.CollectorOutDir)
	if err != nil {
		return err
	}
	defer rec.Close()
	log.Printf("collector: recording to %s", rec.Path())

	record := func(p packet.ServePacket) {
		if err := rec.Append(p); err != nil {
			log.Printf("collector: csv append error: %v", err)
		}
		if err := db.RecordSample(p); err != nil {
			log.Printf("collector: db insert error: %v", err)
		}
	}

	// Periodic CSV flush so a crash loses at most one interval of rows.
	flushDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.CollectorFlushIntervalMS) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-flushDone:
				return
			case <-ticker.C:
				if err := rec.Flush(); err != nil {
					log.Printf("collector: csv flush error: %v", err)
				}
			}
		}
	}()
	defer close(flushDone)

	if cfg.CollectorSerialPort != "" {
		return collectFromSerial(cfg, record)
	}
	return collectFromMQTT(cfg, db, record)
}

// collectFromMQTT subscribes to the stream and result topics.
func collectFromMQTT(cfg *config.Config, db *store.DB, record func(packet.ServePacket)) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDCollector)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("collector: connected to MQTT broker at %s", cfg.MQTTBroker)

	streamToken := client.Subscribe(cfg.TopicStream, 0, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := packet.Decode(msg.Payload())
		if err != nil {
			log.Printf("collector: %v", err)
			return
		}
		record(p)
		if p.Marker() {
			log.Printf("collector: marker edge (session %d, sequence %d)", p.Session, p.Sequence)
		}
	})
	streamToken.Wait()
	if streamToken.Error() != nil {
		return streamToken.Error()
	}
	log.Printf("collector: subscribed to %s", cfg.TopicStream)

	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		text := string(msg.Payload())
		if err := db.RecordResult(text); err != nil {
			log.Printf("collector: result error: %v", err)
			return
		}
		log.Printf("collector: result %s", text)
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}
	log.Printf("collector: subscribed to %s", cfg.TopicResult)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("collector: shutting down")
	return nil
}

// collectFromSerial reads the device's human-readable CSV feed over USB
// serial and converts each line to a packet.
func collectFromSerial(cfg *config.Config, record func(packet.ServePacket)) error {
	serialOpts := serial.OpenOptions{
		PortName:        cfg.CollectorSerialPort,
		BaudRate:        uint(cfg.CollectorSerialBaud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("collector: open serial port: %w", err)
	}
	defer port.Close()
	log.Printf("collector: serial port opened on %s at %d baud",
		cfg.CollectorSerialPort, cfg.CollectorSerialBaud)

	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("collector: serial read error: %v", err)
			return err
		}
		p, ok := parseSerialLine(line)
		if !ok {
			continue
		}
		record(p)
	}
}

// parseSerialLine decodes one device CSV line of the form
// "... t=<millis>,<session>,<sequence>,<ax>,...,<gz>,<capture>". Anything
// that does not match (boot banners, heartbeats) is skipped.
func parseSerialLine(line string) (packet.ServePacket, bool) {
	idx := strings.Index(line, "t=")
	if idx < 0 {
		return packet.ServePacket{}, false
	}
	fields := strings.Split(strings.TrimSpace(line[idx+2:]), ",")
	if len(fields) != 10 {
		return packet.ServePacket{}, false
	}

	u32 := func(s string) (uint32, error) {
		v, err := strconv.ParseUint(s, 10, 32)
		return uint32(v), err
	}
	f32 := func(s string) (float32, error) {
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	}

	millis, err := u32(fields[0])
	if err != nil {
		return packet.ServePacket{}, false
	}
	session, err := u32(fields[1])
	if err != nil {
		return packet.ServePacket{}, false
	}
	sequence, err := u32(fields[2])
	if err != nil {
		return packet.ServePacket{}, false
	}

	var ch [6]float32
	for i := 0; i < 6; i++ {
		v, err := f32(fields[3+i])
		if err != nil {
			return packet.ServePacket{}, false
		}
		ch[i] = v
	}

	capture, err := u32(fields[9])
	if err != nil {
		return packet.ServePacket{}, false
	}

	p := packet.ServePacket{
		Millis:   millis,
		Session:  uint16(session),
		Sequence: uint16(sequence),
		Sample: imu.Sample{
			Ax: ch[0], Ay: ch[1], Az: ch[2],
			Gx: ch[3], Gy: ch[4], Gz: ch[5],
		},
	}
	if capture != 0 {
		p.Flags |= packet.FlagCapture
	}
	return p, true
}
