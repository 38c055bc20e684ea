package main

import (
	"fmt"
	"strings"
)

type Project struct {
	Name        string
	Description string
}

type Role struct {
	Title        string
	Company      string
	StartDate    string
	EndDate      string
	LogoPath     string
	BulletPoints []string
}

type Degree struct {
	Degree       string
	Institution  string
	StartDate    string
	EndDate      string
	LogoPath     string
	BulletPoints []string
}

var (
	Name    = "Zach"
	Contact = "zachkordaspotter@gmail.com"

	AboutMe = `I love building software that’s both useful and fun, and I’m always curious about how things work behind the scenes.
	Most of my projects start with a simple idea and turn into a chance to learn something new, whether it’s exploring a
	different language, experimenting with tools, or solving tricky problems.
	When I’m not coding, you’ll usually find me training Muay Thai, shooting pool with friends,
	or chasing down a new challenge outside the screen.`

	Projects = []Project{
		{"Terminal mail", `A terminal-based email client built in Go with fuzzyfinder capabilities
	using the Charmbracelet TUI framework and go-imap.`},
		{"Terminal music", `A terminal-based music streaming application built in Go with an elegant TUI
	interface, leveraging yt-dlp and mpv for seamless YouTube Music playback directly from the command line.`},
		{"Game recommender", `A machine learning-powered web application that uses TF-IDF vectorization and cosine
	similarity to recommend games based on content analysis, featuring interactive data visualizations and
	real-time filtering by user reviews and ratings.`},
		{"This site", `A modern, responsive portfolio website built with Go, Gin framework, and HTMX for
	dynamic interactions, with a CV assistant that answers questions about my experience.`},
	}

	Experience = []Role{
		{
			Title:     "Presentation Expert",
			Company:   "Target",
			StartDate: "Aug 2023",
			EndDate:   "Present",
			LogoPath:  "images/TargetLogo.jpg",
			BulletPoints: []string{
				"Executed over 300 merchandising transitions on tight timelines by organizing team workflows and adapting quickly to changing priorities",
				"Boosted operational efficiency by managing backroom inventory processes and streamlining communication between floor and logistics teams",
				"Enhanced pricing and signage accuracy across departments by standardizing daily checks and collaborating cross-functionally",
			},
		},
		{
			Title:     "Manager",
			Company:   "Jasons Catered Events",
			StartDate: "Aug 2016",
			EndDate:   "Present",
			LogoPath:  "images/jasonsCateringLogo.png",
			BulletPoints: []string{
				"Improved client satisfaction by coordinating customized menus and ensuring all dietary requirements were accurately met",
				"Supported event technology by troubleshooting AV equipment and managing digital order tracking systems, reducing technical delays and improving communication",
				"Maintained supply inventory and coordinated timely delivery between venues, optimizing resource allocation and minimizing downtime.",
			},
		},
	}

	Education = []Degree{
		{
			Degree:      "Bachelor of Computer Science",
			Institution: "Western Governors University",
			StartDate:   "Sept 2019",
			EndDate:     "May 2023",
			LogoPath:    "images/WGU-logo.png",
			BulletPoints: []string{
				"Graduated Magna Cum Laude with 3.8 GPA",
				"Relevant coursework: Data Structures, Algorithms, Web Development",
				"Senior project: Machine Learning recommendation system",
			},
		},
		{
			Degree:      "Project Management",
			Institution: "Comptia",
			StartDate:   "July 2022",
			EndDate:     "Present",
			LogoPath:    "images/comptiaCert.png",
			BulletPoints: []string{
				"Certified in agile project management methodology",
				"Verification code: SRRRPGBSWBRQCCDJ",
			},
		},
	}
)

// CVText flattens the site content into the plain-text CV the assistant
// answers from.
func CVText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nContact: %s\n\n", Name, Contact)

	b.WriteString("About:\n")
	b.WriteString(collapse(AboutMe))
	b.WriteString("\n\nExperience:\n")
	for _, r := range Experience {
		fmt.Fprintf(&b, "- %s at %s (%s - %s)\n", r.Title, r.Company, r.StartDate, r.EndDate)
		for _, p := range r.BulletPoints {
			fmt.Fprintf(&b, "  * %s\n", p)
		}
	}

	b.WriteString("\nEducation:\n")
	for _, d := range Education {
		fmt.Fprintf(&b, "- %s, %s (%s - %s)\n", d.Degree, d.Institution, d.StartDate, d.EndDate)
		for _, p := range d.BulletPoints {
			fmt.Fprintf(&b, "  * %s\n", p)
		}
	}

	b.WriteString("\nProjects:\n")
	for _, p := range Projects {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, collapse(p.Description))
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
