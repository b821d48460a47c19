package sqlinline

const QInsertQuestion = `--sql d9861d92-0d49-4b5d-9b03-da77b53790ea
insert into questions (id, subject, question, options, correct_answer, explanation, quality_score, is_approved, created_at)
values (gen_random_uuid(), $1::text, $2::text, $3::jsonb, $4::text, $5::text, $6::float8, $7::boolean, now())
returning id;
`

const QSelectRandomQuestions = `--sql 9af4a9b0-d4ff-4db5-a3a1-5772df5856a7
select id, subject, question, options, correct_answer, explanation
from questions
where subject = any($1::text[])
  and is_approved
order by random()
limit $2::int;
`

const QCountQuestionsBySubject = `--sql 75313fa5-e9ca-46af-a48f-cece5daf7281
select count(*)
from questions
where subject = $1::text
  and is_approved;
`

const QSelectBankStats = `--sql 32f5ebbc-303a-42b3-8ce4-34315d2c4ea7
select subject, count(*)
from questions
where is_approved
group by subject;
`

const QSelectApprovedQuestions = `--sql 21ff9135-6062-4cfa-ac71-fe20a1b6df33
select id, subject, question, options, correct_answer, explanation, quality_score, reported_count, created_at
from questions
where is_approved
order by subject, created_at;
`
