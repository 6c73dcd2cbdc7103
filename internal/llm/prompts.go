package llm

const summaryTemplate = `Create a concise and dense summary of the following document text in 150 words:

%s

Summary:`
