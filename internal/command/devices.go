package command

import (
	"fmt"
	"strings"
)

// device describes one relay as users refer to it.
type device struct {
	id      int
	name    string
	article string
	label   string
	aliases []string
}

// devices is in resolution order: the first device with a matching alias wins.
var devices = []device{
	{id: 1, name: "ventilador", article: "el", label: "Ventilador", aliases: []string{"ventilador", "1"}},
	{id: 2, name: "calefactor", article: "el", label: "Calefactor", aliases: []string{"calefactor", "calor", "2"}},
	{id: 3, name: "humidificador", article: "el", label: "Humidificador", aliases: []string{"humidificador", "3"}},
	{id: 4, name: "luz", article: "la", label: "Foco/Luz", aliases: []string{"luz", "foco", "lámpara", "4"}},
}

// allAliases select every relay at once, checked after the single devices.
var allAliases = []string{"todo"}

// resolveDevice returns the first device whose alias occurs in t.
func resolveDevice(t string) (device, bool) {
	for _, d := range devices {
		if containsAny(t, d.aliases...) {
			return d, true
		}
	}
	return device{}, false
}

func deviceByID(id int) (device, bool) {
	for _, d := range devices {
		if d.id == id {
			return d, true
		}
	}
	return device{}, false
}

// DeviceName returns the spoken name of relay id with its article, e.g.
// "el ventilador". Unknown ids yield "el relay N".
func DeviceName(id int) string {
	if d, ok := deviceByID(id); ok {
		return d.article + " " + d.name
	}
	return fmt.Sprintf("el relay %d", id)
}

// DeviceLabel returns the display name of relay id, e.g. "Ventilador".
func DeviceLabel(id int) string {
	if d, ok := deviceByID(id); ok {
		return d.label
	}
	return fmt.Sprintf("Relay %d", id)
}

// DescribeSwitch is the confirmation text for switching relay id.
func DescribeSwitch(id int, on bool) string {
	if on {
		return "He encendido " + DeviceName(id)
	}
	return "He apagado " + DeviceName(id)
}

func containsAny(t string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}
