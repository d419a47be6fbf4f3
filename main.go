package main

import "log"

func main() {
	log.SetFlags(0)

	args := getArgs()
	if args == nil {
		return
	}

	d := NewDirectory()
	if err := d.checkAndParseConfig(args.ConfigFile); err != nil {
		log.Fatal(err)
	}
	if args.ServerName != "" {
		d.Config.ServerName = args.ServerName
	}

	l, err := Listen(d, args.ListenFD)
	if err != nil {
		log.Fatal(err)
	}

	if err := l.Serve(); err != nil {
		log.Fatal(err)
	}
}
