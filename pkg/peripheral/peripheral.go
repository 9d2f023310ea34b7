// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package peripheral exposes the bridge as a Bluetooth LE fitness machine.
package peripheral

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/Thermoquad/ergostat/pkg/bridge"
	"github.com/Thermoquad/ergostat/pkg/ftms"
)

var (
	serviceUUID      = bluetooth.New16BitUUID(ftms.ServiceUUID16)
	featureUUID      = bluetooth.New16BitUUID(ftms.FeatureUUID16)
	bikeDataUUID     = bluetooth.New16BitUUID(ftms.IndoorBikeDataUUID16)
	powerRangeUUID   = bluetooth.New16BitUUID(ftms.SupportedPowerRangeUUID16)
	controlPointUUID = bluetooth.New16BitUUID(ftms.ControlPointUUID16)
	gearUUID         = mustParseUUID(ftms.GearUUID)
)

func mustParseUUID(s string) bluetooth.UUID {
	uuid, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return uuid
}

// Config configures the peripheral.
type Config struct {
	Name    string
	Adapter *bluetooth.Adapter
	Log     *logrus.Entry
}

// Peripheral is the GATT server side of the bridge.
type Peripheral struct {
	cfg    Config
	log    *logrus.Entry
	bridge *bridge.Bridge

	bikeData     bluetooth.Characteristic
	gear         bluetooth.Characteristic
	controlPoint bluetooth.Characteristic
}

// New creates a peripheral serving b.
func New(cfg Config, b *bridge.Bridge) *Peripheral {
	if cfg.Name == "" {
		cfg.Name = "KettlerRacer9"
	}
	if cfg.Adapter == nil {
		cfg.Adapter = bluetooth.DefaultAdapter
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Peripheral{
		cfg:    cfg,
		log:    cfg.Log.WithField("component", "ble"),
		bridge: b,
	}
}

// Start enables the adapter, registers the fitness machine service and
// begins advertising. Failures here are fatal to the caller.
func (p *Peripheral) Start() error {
	adapter := p.cfg.Adapter
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable bluetooth adapter: %w", err)
	}

	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		p.connectionChanged(device.Address.String(), connected)
	})

	err := adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  featureUUID,
				Flags: bluetooth.CharacteristicReadPermission,
				Value: ftms.FeatureRecord(),
			},
			{
				UUID:  powerRangeUUID,
				Flags: bluetooth.CharacteristicReadPermission,
				Value: ftms.SupportedPowerRange(),
			},
			{
				Handle: &p.bikeData,
				UUID:   bikeDataUUID,
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
				Value:  p.bridge.IndoorBikeData(),
			},
			{
				Handle: &p.gear,
				UUID:   gearUUID,
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
				Value:  p.bridge.GearRecord(),
			},
			{
				Handle: &p.controlPoint,
				UUID:   controlPointUUID,
				Flags:  bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicIndicatePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					p.handleWrite(offset, value)
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add fitness machine service: %w", err)
	}

	// Not every adapter reports connections, so the characteristics are
	// written unconditionally. Writes with no subscribed central only update
	// the stored value.
	p.attach(
		characteristicSink{&p.bikeData},
		characteristicSink{&p.gear},
		characteristicSink{&p.controlPoint},
	)

	adv := adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.cfg.Name,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	})
	if err != nil {
		return fmt.Errorf("failed to configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("failed to start advertising: %w", err)
	}

	p.log.WithField("name", p.cfg.Name).Info("Advertising")
	return nil
}

// attach registers the characteristic sinks with the bridge for the life of
// the process and pushes the current records.
func (p *Peripheral) attach(bikeData, gear, controlPoint bridge.Sink) {
	p.bridge.BikeData.Set(bikeData)
	p.bridge.Gear.Set(gear)
	p.bridge.ControlPoint.Set(controlPoint)

	p.bridge.BikeData.Notify(p.bridge.IndoorBikeData())
	p.bridge.Gear.Notify(p.bridge.GearRecord())
}

// connectionChanged logs centrals coming and going. Adapters that report
// connections do so here; the sinks stay attached either way.
func (p *Peripheral) connectionChanged(address string, connected bool) {
	log := p.log.WithField("central", address)
	if connected {
		log.Info("Central connected")
		return
	}
	log.Info("Central disconnected")
}

// handleWrite forwards a control point write. Long writes are not supported.
// Some stacks deliver the peripheral's own indications back through the write
// handler, so response records are dropped here.
func (p *Peripheral) handleWrite(offset int, value []byte) {
	if offset != 0 {
		p.log.WithField("offset", offset).Warn("Long control point write rejected")
		return
	}
	if len(value) > 0 && value[0] == ftms.OpResponseCode {
		return
	}
	p.bridge.HandleControlPoint(value)
}

// characteristicSink updates a characteristic value, which notifies or
// indicates subscribed centrals.
type characteristicSink struct {
	char *bluetooth.Characteristic
}

func (s characteristicSink) Notify(value []byte) error {
	_, err := s.char.Write(value)
	return err
}
