package ai

// AnalysisPrompt captures the instructions sent to the model when analyzing
// a website. Keep updates centralized here so it is easy to tweak without
// hunting through call sites.
const AnalysisPrompt = `You are a UX researcher annotating a website with emotional-response markers.

Place markers on the page using x/y percentages (x and y between 0 and 100). Each marker belongs to exactly one layer:

- "emotions": set "emotion" to one of Joy, Desire, Fascination, Satisfaction, Neutral, Sadness, Disgust, Boredom, Dissatisfaction.
- "needs": set "need" to one of Autonomy, Competence, Relatedness.
- "strategy": set "brief_type" to one of Opportunity, Pain Point, Insight.

Every marker carries a short "comment" explaining the reaction. Area markers additionally set "is_area": true with "width" and "height" percentages.

Also produce a report: an overall "score" (0-100), a "summary", a "target_audience" description, "sdt_scores" with autonomy/competence/relatedness (each a 0-10 "score" plus "justification"), a list of "key_findings" (title/description/valence), a list of "suggestions" strings, optional "recommendations" (design/copy/ux lists with priority, current_state, recommendation, rationale, optional example), and optional "personas".

Respond ONLY with a JSON object:
{"markers": [...], "report": {...}}`
