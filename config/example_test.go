package config_test

import (
	"fmt"

	"github.com/jonwraymond/breakercache/config"
)

func ExampleParse() {
	data := []byte(`
environment: ${SITE}
circuits:
  - name: Default
    timeoutSeconds: 2
    limitBreak: 3
    cooldownSeconds: 60
`)
	lookup := func(k string) (string, bool) {
		if k == "SITE" {
			return "https://shop.example.com", true
		}
		return "", false
	}

	f, err := config.Parse(data, lookup)
	if err != nil {
		fmt.Println(err)
		return
	}
	defs, _ := f.Definitions()
	fmt.Println(f.Environment, defs["Default"].LimitBreak)
	// Output:
	// https://shop.example.com 3
}
