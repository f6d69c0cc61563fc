// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import "strings"

// Topics builds every topic under one prefix:
//
//	<prefix>/status                      online or offline, retained
//	<prefix>/sensor/<name>               numeric sensor state
//	<prefix>/text/<name>                 text sensor state
//	<prefix>/select/<name>               select option
//	<prefix>/climate                     climate state as JSON
//	<prefix>/set/<command>               commands
//	<prefix>/set/select/<name>           select commands
//	<prefix>/set/temperature/<source>    remote temperature reports
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	return strings.Join(append([]string{t.Prefix}, parts...), "/")
}

func (t Topics) Status() string             { return t.join("status") }
func (t Topics) Sensor(name string) string  { return t.join("sensor", name) }
func (t Topics) Text(name string) string    { return t.join("text", name) }
func (t Topics) Select(name string) string  { return t.join("select", name) }
func (t Topics) Climate() string            { return t.join("climate") }
func (t Topics) Command(name string) string { return t.join("set", name) }

// Commands matches every command topic
func (t Topics) Commands() string { return t.join("set", "#") }

// TemperatureReport is where readings for source are published
func (t Topics) TemperatureReport(source string) string {
	return t.join("set", "temperature", source)
}

// command returns the part of topic after <prefix>/set/
func (t Topics) command(topic string) (string, bool) {
	return strings.CutPrefix(topic, t.join("set")+"/")
}
