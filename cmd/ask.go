/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/chart"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a natural-language question with SQL",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	session, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer session.Close()

	answer := session.Ask(ctx, question)

	out := cmd.OutOrStdout()
	for _, notice := range answer.Notices {
		fmt.Fprintf(out, "note: %s\n", notice)
	}
	if answer.Err != nil {
		return answer.Err
	}

	if answer.Narrative != "" {
		fmt.Fprintln(out, answer.Narrative)
		fmt.Fprintln(out)
	}
	if answer.SQL != "" {
		fmt.Fprintf(out, "SQL: %s\n\n", answer.SQL)
	}
	if answer.Result != nil {
		fmt.Fprintln(out, renderResult(answer.Result))
		if spec := chart.Pick(answer.Result); spec != nil {
			fmt.Fprintf(out, "\nsuggested chart: %s (%s)\n", spec.Kind, spec.Title)
		}
	}
	return nil
}
