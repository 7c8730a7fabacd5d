package catalog

// defaultIssues is the built-in knowledge base, condensed from the Catalina
// printer KBA scripts into one spoken instruction per step.
func defaultIssues() []Issue {
	return []Issue{
		{
			ID:       "printer_out_of_paper",
			Triggers: []string{"out of paper", "no paper", "paper not coming out", "paper empty", "paper low"},
			Summary:  "Printer is out of paper",
			Steps: []string{
				"Open the paper door and take out the old roll if there is one.",
				"Put in a new roll of paper with the letter side facing down.",
				"Feed the paper through the top part of the paper door and close the door.",
				"Wait for the status light to show ready, then send a test print.",
			},
			Severity:  SeverityLow,
			KBA:       "KBA3813",
			Equipment: "CMC6",
		},
		{
			ID:       "paper_jam",
			Triggers: []string{"paper jam", "jammed", "paper stuck", "making sounds", "grinding noise", "mechanical error"},
			Summary:  "Paper jam or mechanical error",
			Steps: []string{
				"Open the paper door and remove the paper roll.",
				"Tilt the printer and check the front upper left and right side for stuck paper, and remove any you find.",
				"If you see a small square metal plate inside the top of the paper compartment, slide it to the right and clear any debris.",
				"Put the paper roll back in, close the door, and press the reset button on the bottom left corner.",
				"Wait thirty seconds for the printer to initialize, then send a test print.",
			},
			Severity:  SeverityModerate,
			KBA:       "KBA4213",
			Equipment: "CMC6",
		},
		{
			ID:       "printer_out_of_ink",
			Triggers: []string{"out of ink", "no ink", "ink empty", "low ink", "ink light", "error light"},
			Summary:  "Printer is out of ink",
			Steps: []string{
				"Open the ink door and remove the old cartridge, setting it to the side.",
				"Open a new cartridge from a sealed package and place it in the printer.",
				"Close the ink door and wait about sixty seconds while the printer runs an ink cleaning.",
				"When the status light is steady, send a test print and check the quality.",
			},
			Severity:  SeverityLow,
			KBA:       "KBA3812",
			Equipment: "CMC6",
		},
		{
			ID:       "poor_print_quality",
			Triggers: []string{"poor print quality", "blank prints", "faded", "blank coupons", "print quality", "barely readable"},
			Summary:  "Blank or poor quality prints",
			Steps: []string{
				"We will run a full ink cleaning cycle on the printer.",
				"If the printer beeps for ink during the cleaning, put in a new cartridge from a sealed wrapper.",
				"If the printer beeps for paper, load a new roll.",
				"Ignore any blank pages that come out during the cleaning, and check the final test page with the barcode.",
			},
			Severity:  SeverityModerate,
			KBA:       "KBA4053",
			Equipment: "CMC6",
		},
		{
			ID:       "pc_no_comm",
			Triggers: []string{"store not printing", "promos not printing", "nothing prints", "no communication", "computer problem"},
			Summary:  "Store PC not communicating",
			Steps: []string{
				"Find the store computer tower; it has a blue and white property sticker on it.",
				"Press and hold the power button on the tower until it turns off.",
				"Wait about a minute, then press the power button again and tell me when it is back on.",
				"Once the computer is up, we will check the printer connection and send a test print.",
			},
			Severity:  SeverityHigh,
			KBA:       "KBA4057",
			Equipment: "CMC6",
		},
		{
			ID:       "printer_no_power",
			Triggers: []string{"wont power on", "won't turn on", "no power", "dead", "no lights", "power light off"},
			Summary:  "Printer will not power on",
			Steps: []string{
				"Check whether the lane itself has power, and turn it on if it does not.",
				"Remove the back cover of the printer and find the power cord in the bottom right corner.",
				"Pull back the sleeve on the power cord, disconnect it, and leave it out for thirty seconds.",
				"Reconnect the power cord with the flat arrow side facing out, then reseat the two wires above it.",
				"Tell me the color of each light on the printer server, one at a time.",
			},
			Severity:  SeverityHigh,
			KBA:       "KBA4078",
			Equipment: "CMC6",
		},
		{
			ID:       "printer_offline",
			Triggers: []string{"offline", "not printing", "shows offline", "not connected", "disconnected"},
			Summary:  "Printer shows offline",
			Steps: []string{
				"Reseat the ethernet cable on the right side of the printer server, and tug gently to make sure it locks.",
				"Watch the status light; it should turn orange for about thirty seconds and then green.",
				"If the light turns green, send a test print.",
				"If the light stays red, remove the back cover and power cycle the printer.",
			},
			Severity:  SeverityModerate,
			KBA:       "KBA4078",
			Equipment: "CMC6",
		},
	}
}
