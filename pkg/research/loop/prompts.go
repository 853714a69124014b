package loop

import "time"

// Today formats the current date the way the prompts expect it.
func Today() string {
	return time.Now().Format("Mon Jan 2, 2006")
}

const compressSystemPrompt = `You are a research assistant that has conducted research on a topic by calling tools and web searches. Your job is now to clean up the findings while preserving every relevant statement the researcher gathered. For context, today's date is %s.

<Task>
Clean up the information gathered from tool calls and web searches in the messages that follow.
All relevant information should be repeated and rewritten verbatim, just in a cleaner format.
The purpose of this step is only to remove obviously irrelevant or duplicated content.
For example, if three sources all state X, say "These three sources all stated X".
These cleaned findings are what gets returned to the user, so do not lose any information from the raw messages.
</Task>

<Guidelines>
1. Your output must be fully comprehensive and include ALL information and sources the researcher gathered.
2. The report may be as long as needed to carry all of the gathered information.
3. Use inline citations for each source the researcher found.
4. End with a "Sources" section listing every source with its citation.
5. Never drop a source: later synthesis stages rely on the complete list.
</Guidelines>`

const compressHumanPrompt = `All of the messages above concern research conducted on the following topic: %s

Clean up these findings into a fully comprehensive, cited record of everything learned. Preserve all information and every source.`
